package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// disclaimer is printed before any network activity. The run proceeds only
// after an explicit acknowledgment.
const disclaimer = `
================================================================================
                            AUTHORIZED USE ONLY
================================================================================
This tool performs password-guessing attacks against a login endpoint. It is
intended exclusively for:

  - Penetration tests with written authorization from the system owner
  - Security assessments of systems you own or operate

Unauthorized access to computer systems is a crime in most jurisdictions.
You are solely responsible for how you use this tool.
================================================================================
`

// confirmAuthorizedUse prints the disclaimer and waits for an explicit "yes".
// It returns true if the operator confirmed, false otherwise. Anything but
// "yes" (case-insensitive) is a refusal.
func confirmAuthorizedUse(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, disclaimer)
	fmt.Fprint(out, "\nType 'yes' to confirm you are authorized to test this target: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(scanner.Text()), "yes")
}

// warnIfRoot prints a warning when the process runs as root. There is no
// reason for this tool to have elevated privileges, and a compromised
// dependency or a bug would inherit them.
func warnIfRoot(out io.Writer) {
	if os.Geteuid() == 0 {
		fmt.Fprintln(out, "Warning: running as root. This tool does not need elevated privileges.")
	}
}
