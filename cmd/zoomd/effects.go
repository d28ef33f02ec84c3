package main

import (
	"log/slog"
)

// runEffect performs the I/O behind one command. Results come back only as
// events passed to onEvent; the daemon loop reduces them.
func runEffect(
	store *settingsStore,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	switch c := cmd.(type) {
	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}
		return
	}

	if store == nil {
		onEvent(CommandFailed{Command: cmd, Err: errNoStore{}})
		return
	}

	switch c := cmd.(type) {
	case CmdPersistScale:
		store.SetScale(c.Scale)

	case CmdPersistSettings:
		store.Set(c.Key, c.Value)

	case CmdLoadSettings:
		settings, err := store.Load()
		if err != nil {
			logger.Error("settings reload failed", "error", err, "path", store.Path())
			onEvent(CommandFailed{Command: cmd, Err: err})
			return
		}
		logger.Info("settings reloaded", "path", store.Path())
		onEvent(SettingsLoaded{Settings: settings})

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{
			Command: cmd,
			Err:     errUnknownCommand{cmd: cmd},
		})
	}
}

// errNoStore indicates a store command was issued without a settings store.
type errNoStore struct{}

func (errNoStore) Error() string { return "no settings store" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
