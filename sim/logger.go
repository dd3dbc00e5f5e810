package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yin1008/paparazzi/fixed"
)

// LogHeader names the columns a Logger writes. Angles are in degrees, sensor
// values in SI units.
var LogHeader = []string{
	"T",
	"PhiTrue", "ThetaTrue", "PsiTrue",
	"Phi", "Theta", "Psi",
	"PhiErr", "ThetaErr", "PsiErr",
	"P", "Q", "R",
	"A1", "A2", "A3",
	"M1", "M2", "M3",
	"AccelCut",
}

// Logger writes one CSV row per Sample.
type Logger struct {
	c    io.Closer
	w    *bufio.Writer
	fmt  string
	vals []any
}

// NewLogger creates fn and writes the header.
func NewLogger(fn string) (*Logger, error) {
	f, err := os.Create(fn)
	if err != nil {
		return nil, err
	}
	l, err := NewLoggerTo(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

// NewLoggerTo writes the log to w.
func NewLoggerTo(w io.Writer) (*Logger, error) {
	l := &Logger{w: bufio.NewWriter(w)}
	if _, err := fmt.Fprint(l.w, strings.Join(LogHeader, ","), "\n"); err != nil {
		return nil, err
	}
	s := strings.Repeat("%f,", len(LogHeader)-1)
	l.fmt = s + "%d\n"
	l.vals = make([]any, len(LogHeader))
	return l, nil
}

func (l *Logger) Observe(s Sample) error {
	r := s.Reading
	v := l.vals[:0]
	v = append(v, s.T)
	for _, a := range [][3]float64{s.True, s.Estimate, s.Error} {
		v = append(v, a[0]/deg, a[1]/deg, a[2]/deg)
	}
	v = append(v, r.Gyro.P.Real(), r.Gyro.Q.Real(), r.Gyro.R.Real())
	for _, x := range r.Accel.Array() {
		v = append(v, fixed.RealOfAccel(x))
	}
	for _, x := range r.Mag.Array() {
		v = append(v, fixed.RealOfMag(x))
	}
	cut := 0
	if s.AccelCut {
		cut = 1
	}
	v = append(v, cut)
	_, err := fmt.Fprintf(l.w, l.fmt, v...)
	return err
}

// Close flushes the log and closes the file it was opened on.
func (l *Logger) Close() error {
	err := l.w.Flush()
	if l.c != nil {
		if cerr := l.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
