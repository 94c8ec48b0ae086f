package dispatch

import "fmt"

// The command schema is registered by the deployer, not supplied by users.
// A tree shape the dispatcher does not recognize is therefore a defect, and
// these errors surface as request failures rather than soft replies.

type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown root command %q", e.Name)
}

type UnknownSubcommandError struct {
	Command string
	Name    string
}

func (e *UnknownSubcommandError) Error() string {
	return fmt.Sprintf("unknown `/%s` subcommand %q", e.Command, e.Name)
}

type MissingArgumentError struct {
	Command  string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("`/%s` requires exactly one %q argument", e.Command, e.Argument)
}
