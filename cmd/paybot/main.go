package main

import (
	"fmt"
	"log"

	"github.com/m3rciful/paybot/core/bootstrap"
	corecmd "github.com/m3rciful/paybot/core/cmd"
	"github.com/m3rciful/paybot/internal/config"
	"github.com/m3rciful/paybot/internal/paybot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(cc corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := cc.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cc)
			}
			if err := bootstrap.Run(bootstrap.Options{Config: cfg.CoreConfig()}); err != nil {
				return nil, err
			}
			return paybot.New(cfg)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
