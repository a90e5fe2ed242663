package download

import (
	"path/filepath"
	"regexp"
)

// The tool names its deliverable in free-form progress output. These
// rules recognize the known destination lines; the capture is the path
// the tool wrote (or will write) the file to.
var destRules = []*regexp.Regexp{
	regexp.MustCompile(`\[ExtractAudio\] Destination: (.+)`),
	regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`),
	regexp.MustCompile(`\[download\] Destination: (.+)`),
	regexp.MustCompile(`\[download\] (.+) has already been downloaded`),
}

// destScanner tracks the candidate result filename across a run. The
// tool may name several destinations (intermediate streams, then the
// final merge); lines are fed in emission order and the last match
// wins. A candidate, once set, is never cleared.
type destScanner struct {
	candidate string
}

func (s *destScanner) scan(line string) {
	for _, rule := range destRules {
		if m := rule.FindStringSubmatch(line); m != nil {
			s.candidate = filepath.Base(m[1])
			return
		}
	}
}

// fileName returns the authoritative result filename, if any line named one.
func (s *destScanner) fileName() (string, bool) {
	return s.candidate, s.candidate != ""
}
