package cli

import (
	"fmt"
	"io"
)

// Version is the current version of constprop
const Version = "0.1.0"

// ShowVersion writes the version information
func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "constprop version %s\n", Version)
}
