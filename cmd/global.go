package cmd

type GlobalFlags struct {
	envFile string
	quiet   bool
	verbose bool
	trace   bool
}

var global GlobalFlags
