package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/playerhub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-i string   device id
//	-n string   friendly name
//	-m string   master email announced on boot
//	-u string   hub base URL
//	-g string   gRPC bind address
//	-r string   Redis address
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-i", "-n", "-m", "-u", "-g", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DeviceID, "i", cfg.DeviceID, "device id")
	fs.StringVar(&cfg.FriendlyName, "n", cfg.FriendlyName, "friendly name")
	fs.StringVar(&cfg.MasterEmail, "m", cfg.MasterEmail, "master email")
	fs.StringVar(&cfg.HubURL, "u", cfg.HubURL, "hub base URL")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
