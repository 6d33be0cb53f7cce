package cli

import "github.com/spf13/pflag"

// Flags holds the persistent command line flags
type Flags struct {
	Workspace     string
	Config        string
	JSON          bool
	Verbose       bool
	AllowBreaking bool
	NoBackup      bool
}

// bind registers the flags on a flag set
func (f *Flags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Workspace, "workspace", "w", ".", "Path to workspace root (defaults to current directory)")
	fs.StringVar(&f.Config, "config", "", "Config file (default is <workspace>/.constprop/config.yml)")
	fs.BoolVar(&f.JSON, "json", false, "Output results in JSON format")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose output")
	fs.BoolVar(&f.AllowBreaking, "allow-breaking", false, "Apply plans even when they report errors")
	fs.BoolVar(&f.NoBackup, "no-backup", false, "Do not journal transactions for undo")
}
