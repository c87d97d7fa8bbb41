// Package termimg renders image bytes inline in the terminal. Protocol
// support is negotiated once per process from the environment (or
// forced by configuration) and treated as immutable for the run; when
// no protocol is supported rendering degrades to a textual placeholder,
// never an error.
package termimg

import (
	"os"
	"strings"
)

// Protocol is the closed set of supported terminal image protocols.
type Protocol int

const (
	// None disables inline images; a placeholder is shown instead.
	None Protocol = iota
	// Kitty is the kitty graphics protocol (kitty, ghostty).
	Kitty
	// ITerm2 is the OSC 1337 inline-file protocol (iTerm2, WezTerm).
	ITerm2
)

// String implements fmt.Stringer.
func (p Protocol) String() string {
	switch p {
	case Kitty:
		return "kitty"
	case ITerm2:
		return "iterm2"
	default:
		return "none"
	}
}

// Support is the resolved capability for this process.
type Support struct {
	Protocol Protocol
	Enabled  bool
}

// Detect probes the environment for terminal image protocol support.
func Detect(enabled bool) Support {
	if !enabled {
		return Support{Protocol: None, Enabled: false}
	}

	term := strings.ToLower(os.Getenv("TERM"))
	termProgram := os.Getenv("TERM_PROGRAM")

	if os.Getenv("KITTY_WINDOW_ID") != "" ||
		strings.Contains(term, "kitty") ||
		strings.Contains(strings.ToLower(termProgram), "ghostty") {
		return Support{Protocol: Kitty, Enabled: true}
	}
	if os.Getenv("ITERM_SESSION_ID") != "" ||
		os.Getenv("WEZTERM_EXECUTABLE") != "" ||
		termProgram == "WezTerm" ||
		termProgram == "iTerm.app" {
		return Support{Protocol: ITerm2, Enabled: true}
	}
	return Support{Protocol: None, Enabled: true}
}

// Resolve applies the configured protocol name, falling back to
// detection for "auto" or unknown values.
func Resolve(protocol string, enabled bool) Support {
	switch strings.ToLower(protocol) {
	case "kitty":
		return Support{Protocol: Kitty, Enabled: enabled}
	case "iterm2", "wezterm":
		return Support{Protocol: ITerm2, Enabled: enabled}
	case "none":
		return Support{Protocol: None, Enabled: false}
	default:
		return Detect(enabled)
	}
}

// Active reports whether inline rendering should be attempted.
func (s Support) Active() bool {
	return s.Enabled && s.Protocol != None
}
