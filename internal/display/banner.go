package display

import (
	"fmt"
	"io"

	"github.com/backmassage/wavnorm/internal/term"
)

const banner = `__      ____ ___   ___ __   ___  _ __ _ __ ___
\ \ /\ / / _` + "`" + ` \ \ / / '_ \ / _ \| '__| '_ ` + "`" + ` _ \
 \ V  V / (_| |\ V /| | | | (_) | |  | | | | | |
  \_/\_/ \__,_| \_/ |_| |_|\___/|_|  |_| |_| |_|
`

// PrintBanner prints the ASCII art banner to w, in magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta.Sprint(banner))
	fmt.Fprintln(w)
}
