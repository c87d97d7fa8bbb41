package termimg

import (
	"encoding/base64"
	"fmt"
	"io"
)

const kittyChunkSize = 4096

// Placeholder is rendered where an image would appear when no protocol
// is supported.
const Placeholder = "[avatar]"

// Render writes the escape sequence that draws img into a cols x rows
// cell area, dispatching on the negotiated protocol. With no supported
// protocol it writes the textual placeholder instead; rendering is
// never an error path for unsupported terminals.
func (s Support) Render(w io.Writer, img []byte, cols, rows int) error {
	if !s.Active() || len(img) == 0 {
		_, err := io.WriteString(w, Placeholder)
		return err
	}
	switch s.Protocol {
	case Kitty:
		return writeKitty(w, img, cols, rows)
	case ITerm2:
		return writeITerm2(w, img, cols, rows)
	default:
		_, err := io.WriteString(w, Placeholder)
		return err
	}
}

// Reset clears previously drawn images where the protocol requires it.
func (s Support) Reset(w io.Writer) error {
	if !s.Active() {
		return nil
	}
	if s.Protocol == Kitty {
		_, err := io.WriteString(w, "\x1b_Ga=d\x1b\\")
		return err
	}
	return nil
}

// writeITerm2 emits the OSC 1337 inline-file sequence.
func writeITerm2(w io.Writer, img []byte, cols, rows int) error {
	payload := base64.StdEncoding.EncodeToString(img)
	_, err := fmt.Fprintf(w,
		"\x1b]1337;File=inline=1;width=%dc;height=%dc;preserveAspectRatio=1:%s\x07",
		cols, rows, payload)
	return err
}

// writeKitty emits the kitty graphics protocol transmission, chunking
// the base64 payload; m=1 marks every chunk but the last.
func writeKitty(w io.Writer, img []byte, cols, rows int) error {
	payload := base64.StdEncoding.EncodeToString(img)
	first := true
	for len(payload) > 0 {
		chunk := payload
		if len(chunk) > kittyChunkSize {
			chunk = chunk[:kittyChunkSize]
		}
		payload = payload[len(chunk):]

		more := 0
		if len(payload) > 0 {
			more = 1
		}
		var err error
		if first {
			_, err = fmt.Fprintf(w, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, chunk)
			first = false
		} else {
			_, err = fmt.Fprintf(w, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
