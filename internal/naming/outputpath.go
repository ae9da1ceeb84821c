package naming

import (
	"path/filepath"
	"strings"
)

// WAVExt is the extension given to every output file.
const WAVExt = ".wav"

// Stem returns name without its final extension. A leading dot does not
// start an extension, so ".hidden" stays ".hidden" and ".hidden.mp3"
// becomes ".hidden".
func Stem(name string) string {
	base := filepath.Base(name)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return base
	}
	return base[:i]
}

// OutputPath builds <outputDir>/<stem>.wav for an input file name.
//
//	song.mp3      -> <outputDir>/song.wav
//	archive.tar.gz -> <outputDir>/archive.tar.wav
//	README        -> <outputDir>/README.wav
func OutputPath(outputDir, name string) string {
	return filepath.Join(outputDir, Stem(name)+WAVExt)
}
