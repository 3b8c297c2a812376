package bootstrap

import (
	"fmt"

	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/core/logger"
)

// Stage is an extra initialisation step run after the logger is ready.
type Stage struct {
	Name string
	Run  func(*coreconfig.Config) error
}

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Stages     []Stage
}

// Run initializes the logger and then executes the configured stages in order.
func Run(opts Options) error {
	if opts.Config == nil {
		return fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	for _, st := range opts.Stages {
		if st.Run == nil {
			continue
		}
		if err := st.Run(opts.Config); err != nil {
			return fmt.Errorf("bootstrap: %s failed: %w", st.Name, err)
		}
	}
	return nil
}
