package cmd

import (
	"github.com/sirupsen/logrus"
)

// commandLogger returns the shared logger scoped to a command.
func commandLogger(name string) logrus.FieldLogger {
	return Logger.WithField("command", name)
}
