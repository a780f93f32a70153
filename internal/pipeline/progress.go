package pipeline

import (
	"strings"
	"time"
)

// Per-stage progress windows. Progress moves through these monotonically on
// a successful run and is reset to 0 on error or cancellation.
var (
	spanExtract   = span{5, 25}
	spanSegment   = span{30, 58}
	spanQuestions = span{60, 65}
	spanFilter    = span{70, 75}
	spanMap       = span{78, 80}
	spanImages    = span{82, 97}
)

type span struct{ lo, hi int }

// at maps done-of-total completion onto the stage's window.
func (s span) at(done, total int) int {
	if total <= 0 || done >= total {
		return s.hi
	}
	if done <= 0 {
		return s.lo
	}
	return s.lo + (s.hi-s.lo)*done/total
}

const (
	logWindow      = 10
	errorLogWindow = 15
)

// stageLog keeps the most recent timestamped progress lines. The persisted
// window is the last 10 lines, widened to 15 when a run fails.
type stageLog struct {
	lines []string
	now   func() time.Time
}

func newStageLog() *stageLog {
	return &stageLog{now: time.Now}
}

func (l *stageLog) add(line string) {
	l.lines = append(l.lines, "["+l.now().Format("15:04:05")+"] "+line)
	if len(l.lines) > errorLogWindow {
		l.lines = l.lines[len(l.lines)-errorLogWindow:]
	}
}

func (l *stageLog) window(n int) string {
	lines := l.lines
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
