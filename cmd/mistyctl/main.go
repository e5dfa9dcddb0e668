// mistyctl drives a Misty II robot (or the simulator) from the command line.
//
//	mistyctl -robot 192.168.1.96 battery
//	mistyctl -profile lab listen TouchSensor
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	appconfig "github.com/misty-community/misty-go/internal/config"
	applogger "github.com/misty-community/misty-go/internal/logger"
	"github.com/misty-community/misty-go/internal/storage"
	"github.com/misty-community/misty-go/pkg/misty"
)

func main() {
	configPath := flag.String("config", "", "path to conf.yaml")
	robotIP := flag.String("robot", "", "robot IP address, overrides config and profile")
	profileName := flag.String("profile", "", "named robot profile from the profiles directory")
	record := flag.Bool("record", false, "with listen: save received events as a capture")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.New(cfg.Log)
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	ip, err := resolveIP(cfg, *robotIP, *profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	robot := misty.NewRobot(ip, misty.WithLogger(logger))
	defer robot.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, robot, cfg, flag.Args(), *record); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveIP(cfg appconfig.Config, robotIP string, profileName string) (string, error) {
	if robotIP != "" {
		return robotIP, nil
	}
	if profileName != "" {
		profile, err := appconfig.FindProfile(cfg.ProfilesDir, profileName)
		if err != nil {
			return "", err
		}
		return profile.IP, nil
	}
	if cfg.Robot.IP != "" {
		return cfg.Robot.IP, nil
	}
	return "", fmt.Errorf("no robot address: pass -robot, -profile, or set robot.ip in conf.yaml")
}

func run(ctx context.Context, robot *misty.Robot, cfg appconfig.Config, args []string, record bool) error {
	command, rest := args[0], args[1:]
	timeout := time.Duration(cfg.Robot.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch command {
	case "info":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			info, err := robot.GetDeviceInformation(ctx)
			if err != nil {
				return err
			}
			return printJSON(info)
		})
	case "battery":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			battery, err := robot.GetBatteryLevel(ctx)
			if err != nil {
				return err
			}
			return printJSON(battery)
		})
	case "volume":
		volume, err := intArg(rest, 0, "volume")
		if err != nil {
			return err
		}
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			return robot.SetDefaultVolume(ctx, volume)
		})
	case "drive":
		linear, err := floatArg(rest, 0, "linear velocity")
		if err != nil {
			return err
		}
		angular, err := floatArg(rest, 1, "angular velocity")
		if err != nil {
			return err
		}
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			return robot.Drive(ctx, linear, angular)
		})
	case "stop":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			return robot.Stop(ctx)
		})
	case "halt":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			return robot.Halt(ctx)
		})
	case "audio":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			files, err := robot.GetAudioList(ctx)
			if err != nil {
				return err
			}
			return printJSON(files)
		})
	case "play":
		if len(rest) == 0 {
			return fmt.Errorf("play needs a file name")
		}
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			return robot.PlayAudio(ctx, rest[0], 0)
		})
	case "skills":
		return withTimeout(ctx, timeout, func(ctx context.Context) error {
			skills, err := robot.GetSkills(ctx)
			if err != nil {
				return err
			}
			return printJSON(skills)
		})
	case "listen":
		if len(rest) == 0 {
			return fmt.Errorf("listen needs an event type, e.g. TouchSensor")
		}
		return listen(ctx, robot, cfg, rest[0], record)
	case "captures":
		return printJSON(storage.ListCaptures(cfg.CapturesDir, captureName(robot.IP())))
	case "capture":
		if len(rest) == 0 {
			return fmt.Errorf("capture needs a capture uid")
		}
		records, err := storage.GetCapture(cfg.CapturesDir, captureName(robot.IP()), rest[0])
		if err != nil {
			return err
		}
		return printJSON(records)
	case "capture-delete":
		if len(rest) == 0 {
			return fmt.Errorf("capture-delete needs a capture uid")
		}
		if !storage.DeleteCapture(cfg.CapturesDir, captureName(robot.IP()), rest[0]) {
			return fmt.Errorf("no capture %q", rest[0])
		}
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// listen subscribes to one event type and prints events until interrupted,
// optionally saving them as a capture.
func listen(ctx context.Context, robot *misty.Robot, cfg appconfig.Config, eventType string, record bool) error {
	name := fmt.Sprintf("mistyctl-%s-%d", eventType, time.Now().Unix())
	stream, err := robot.RegisterEvent(eventType, name)
	if err != nil {
		return err
	}
	defer robot.RemoveEvent(name)

	var captureUID string
	if record {
		captureUID, err = storage.CreateCapture(cfg.CapturesDir, captureName(robot.IP()))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "recording to capture %s\n", captureUID)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = stream.Subscribe(dialCtx)
	cancel()
	if err != nil {
		return err
	}

	for {
		msg, err := stream.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := printJSON(msg); err != nil {
			return err
		}
		if captureUID != "" {
			err := storage.AppendEvent(cfg.CapturesDir, captureName(robot.IP()), captureUID, storage.EventRecord{
				EventName: name,
				Payload:   msg,
			})
			if err != nil {
				return err
			}
		}
	}
}

// captureName turns a robot address into a directory-safe name.
func captureName(ip string) string {
	return strings.ReplaceAll(ip, ":", "_")
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func intArg(args []string, i int, name string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, args[i])
	}
	return n, nil
}

func floatArg(args []string, i int, name string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, args[i])
	}
	return f, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: mistyctl [-config path] [-robot ip | -profile name] <command>

commands:
  info                 print device information
  battery              print battery state
  volume <0-100>       set the default volume
  drive <lin> <ang>    start driving with the given velocities
  stop                 stop driving
  halt                 stop every motor immediately
  audio                list audio files
  play <file>          play an audio file
  skills               list uploaded skills
  listen <EventType>   stream events of one type until interrupted
                       (-record saves them as a capture)
  captures             list recorded captures for this robot
  capture <uid>        print one recorded capture
  capture-delete <uid> delete one recorded capture
`)
}
