package sim

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadScenario reads a scenario from a CSV file. The header names the
// columns; T (s), Phi, Theta and Psi (degrees) are required, MagN, MagE and
// MagD optionally set the earth field from the first row. Other columns are
// ignored.
func LoadScenario(fn string) (*Scenario, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
	return ReadScenario(name, f)
}

// ReadScenario is LoadScenario for an open reader.
func ReadScenario(name string, rd io.Reader) (*Scenario, error) {
	r := csv.NewReader(bufio.NewReader(rd))
	r.TrimLeadingSpace = true

	// Read header line
	rec, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("sim: reading scenario %s header: %w", name, err)
	}
	fields := make(map[string]int, len(rec))
	for i, k := range rec {
		fields[strings.TrimSpace(k)] = i
	}
	for _, k := range []string{"T", "Phi", "Theta", "Psi"} {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("sim: scenario %s has no %s column", name, k)
		}
	}

	var t, phi, theta, psi []float64
	var mag []float64
	for line := 2; ; line++ {
		rec, err = r.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("sim: scenario %s: %w", name, err)
		}

		get := func(k string) (float64, error) {
			v, err := strconv.ParseFloat(rec[fields[k]], 64)
			if err != nil {
				return 0, fmt.Errorf("sim: scenario %s line %d column %s: %w", name, line, k, err)
			}
			return v, nil
		}
		var row [4]float64
		for i, k := range []string{"T", "Phi", "Theta", "Psi"} {
			if row[i], err = get(k); err != nil {
				return nil, err
			}
		}
		t = append(t, row[0])
		phi = append(phi, row[1]*deg)
		theta = append(theta, row[2]*deg)
		psi = append(psi, row[3]*deg)

		if mag == nil {
			mag = make([]float64, 0, 3)
			for _, k := range []string{"MagN", "MagE", "MagD"} {
				if _, ok := fields[k]; !ok {
					break
				}
				v, err := get(k)
				if err != nil {
					return nil, err
				}
				mag = append(mag, v)
			}
		}
	}

	s, err := NewScenario(name, t, phi, theta, psi)
	if err != nil {
		return nil, err
	}
	if len(mag) == 3 {
		s.SetMagField(mag[0], mag[1], mag[2])
	}
	return s, nil
}
