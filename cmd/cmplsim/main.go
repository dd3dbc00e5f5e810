/*
Fly the complementary filter through a simulated scenario.
Define a flight attitude timeline in code or in a CSV file, synthesize the
matching gyro, accel and magnetometer data with optional noise and bias, and
see how well the filter recovers the "true" attitude.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/ahrsweb"
	"github.com/yin1008/paparazzi/sim"
)

func parseFloatArrayString(str string, a *[3]float64) (err error) {
	parts := strings.Split(str, ",")
	if len(parts) != 3 {
		return fmt.Errorf("want 3 comma separated values, got %q", str)
	}
	for i, s := range parts {
		if a[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	log.SetPrefix("Sim: ")

	var (
		configFn, writeConfigFn          string
		scenario                         string
		gyroBiasStr, accelBiasStr        string
		magBiasStr, mountStr             string
		gyroNoise, accelNoise, magNoise  float64
		accelHz, magHz                   float64
		magInop, quiet                   bool
		seed                             uint64
		csvFn, plotDir, publishURL       string
		publishEvery, plotEvery, samples int
		settle                           float64
		gain                             int
	)

	const (
		configUsage      = "JSON filter config to load (default: built-in)"
		writeConfigUsage = "Write the default JSON filter config to this file and exit"
		scenarioUsage    = "Scenario to use: filename or one of the built-ins"
		gyroNoiseUsage   = "Amount of noise to add to gyro measurements, °/s"
		gyroBiasUsage    = "Amount of bias to add to gyro measurements, \"x,y,z\" °/s"
		accelNoiseUsage  = "Amount of noise to add to accel measurements, m/s²"
		accelBiasUsage   = "Amount of bias to add to accel measurements, \"x,y,z\" m/s²"
		magNoiseUsage    = "Amount of noise to add to magnetometer measurements"
		magBiasUsage     = "Amount of bias to add to magnetometer measurements, \"x,y,z\""
		mountUsage       = "Sensor mounting relative to the body, \"roll,pitch,yaw\" °"
		magInopUsage     = "Make the Magnetometer inoperative"
	)

	flag.StringVar(&configFn, "config", "", configUsage)
	flag.StringVar(&writeConfigFn, "write-config", "", writeConfigUsage)
	flag.StringVar(&scenario, "scenario", "takeoff", scenarioUsage)
	flag.StringVar(&scenario, "s", "takeoff", scenarioUsage)
	flag.Float64Var(&gyroNoise, "gyro-noise", 0, gyroNoiseUsage)
	flag.Float64Var(&gyroNoise, "g", 0, gyroNoiseUsage)
	flag.StringVar(&gyroBiasStr, "gyro-bias", "0,0,0", gyroBiasUsage)
	flag.StringVar(&gyroBiasStr, "h", "0,0,0", gyroBiasUsage)
	flag.Float64Var(&accelNoise, "accel-noise", 0, accelNoiseUsage)
	flag.Float64Var(&accelNoise, "a", 0, accelNoiseUsage)
	flag.StringVar(&accelBiasStr, "accel-bias", "0,0,0", accelBiasUsage)
	flag.StringVar(&accelBiasStr, "i", "0,0,0", accelBiasUsage)
	flag.Float64Var(&magNoise, "mag-noise", 0, magNoiseUsage)
	flag.Float64Var(&magNoise, "b", 0, magNoiseUsage)
	flag.StringVar(&magBiasStr, "mag-bias", "0,0,0", magBiasUsage)
	flag.StringVar(&magBiasStr, "k", "0,0,0", magBiasUsage)
	flag.StringVar(&mountStr, "mount", "0,0,0", mountUsage)
	flag.BoolVar(&magInop, "m", false, magInopUsage)
	flag.Float64Var(&accelHz, "accel-hz", 100, "Accelerometer update rate, Hz (0: every propagation)")
	flag.Float64Var(&magHz, "mag-hz", 50, "Magnetometer update rate, Hz (0: every propagation)")
	flag.IntVar(&samples, "align-samples", 100, "Number of samples averaged for alignment")
	flag.Float64Var(&settle, "settle", 5, "Seconds after alignment before errors are counted")
	flag.IntVar(&gain, "gain", 0, "Reinjection gain divisor, overrides the config (0: keep)")
	flag.Uint64Var(&seed, "seed", 1, "Noise seed")
	flag.StringVar(&csvFn, "csv", "", "Write every sample to this CSV file")
	flag.StringVar(&plotDir, "plot", "", "Write PNG charts to this directory")
	flag.IntVar(&plotEvery, "plot-every", 16, "Plot every Nth sample")
	flag.StringVar(&publishURL, "publish", "", "Publish samples to an ahrsweb room, e.g. "+ahrsweb.DefaultURL())
	flag.IntVar(&publishEvery, "publish-every", 16, "Publish every Nth sample")
	flag.BoolVar(&quiet, "q", false, "Don't log progress")
	flag.Parse()

	if writeConfigFn != "" {
		if err := os.WriteFile(writeConfigFn, []byte(ahrs.DefaultJSONConfig), 0644); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Wrote default config to %s\n", writeConfigFn)
		return
	}

	cfg := ahrs.DefaultConfig()
	if configFn != "" {
		var err error
		if cfg, err = ahrs.LoadConfig(configFn); err != nil {
			log.Fatalln(err)
		}
	}
	if gain != 0 {
		cfg.ReinjectionGain = int32(gain)
	}
	f, err := ahrs.New(cfg)
	if err != nil {
		log.Fatalln(err)
	}

	sit, ok := sim.Builtin(scenario)
	if !ok {
		log.Printf("Loading data from %s\n", scenario)
		if sit, err = sim.LoadScenario(scenario); err != nil {
			log.Fatalf("%v (built-in scenarios: %s)\n", err, strings.Join(sim.BuiltinNames(), ", "))
		}
	}

	rc := sim.DefaultRunConfig()
	rc.Frequency = cfg.PropagateFrequency
	rc.AccelFrequency = accelHz
	rc.MagFrequency = magHz
	if magInop {
		rc.MagFrequency = -1
	}
	rc.AlignSamples = samples
	rc.SettleTime = settle
	if !quiet {
		rc.Logger = log.Default()
	}
	s := &rc.Sensors
	s.GyroNoise, s.AccelNoise, s.MagNoise, s.Seed = gyroNoise, accelNoise, magNoise, seed
	for _, v := range []struct {
		str string
		a   *[3]float64
	}{
		{gyroBiasStr, &s.GyroBias},
		{accelBiasStr, &s.AccelBias},
		{magBiasStr, &s.MagBias},
		{mountStr, &s.Mount},
	} {
		if err := parseFloatArrayString(v.str, v.a); err != nil {
			log.Fatalf("Error %v parsing %s\n", err, v.str)
		}
	}

	fmt.Println("Simulation parameters:")
	fmt.Printf("\tScenario: %s (%.0fs)\n", sit.Name, sit.EndTime()-sit.BeginTime())
	fmt.Println("Filter:")
	fmt.Printf("\tPropagate Frequency: %d Hz\n", cfg.PropagateFrequency)
	fmt.Printf("\tReinjection gain: %d\n", cfg.ReinjectionGain)
	fmt.Printf("\tOutlier cut: %t, smoothing: %t\n", cfg.Noise.OutlierCut, cfg.Noise.Smoothing)
	fmt.Println("Accelerometer:")
	fmt.Printf("\tUpdate Frequency: %g Hz\n", accelHz)
	fmt.Printf("\tNoise: %f m/s²\n", accelNoise)
	fmt.Printf("\tBias: %f,%f,%f\n", s.AccelBias[0], s.AccelBias[1], s.AccelBias[2])
	fmt.Println("Gyro:")
	fmt.Printf("\tNoise: %f °/s\n", gyroNoise)
	fmt.Printf("\tBias: %f,%f,%f\n", s.GyroBias[0], s.GyroBias[1], s.GyroBias[2])
	fmt.Println("Magnetometer:")
	fmt.Printf("\tInop: %t\n", magInop)
	fmt.Printf("\tNoise: %f\n", magNoise)
	fmt.Printf("\tBias: %f,%f,%f\n", s.MagBias[0], s.MagBias[1], s.MagBias[2])

	var obs []sim.Observer
	if csvFn != "" {
		l, err := sim.NewLogger(csvFn)
		if err != nil {
			log.Fatalln(err)
		}
		defer l.Close()
		obs = append(obs, l)
	}
	var rec *sim.Recorder
	if plotDir != "" {
		rec = &sim.Recorder{Every: plotEvery}
		obs = append(obs, rec)
	}
	if publishURL != "" {
		p, err := ahrsweb.NewPublisher(publishURL)
		if err != nil {
			log.Fatalln(err)
		}
		defer p.Close()
		p.Filter = f
		p.Every = publishEvery
		obs = append(obs, p)
	}

	// This is where it all happens
	fmt.Println("Running Simulation")
	res, err := sim.Run(f, sit, rc, obs...)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("Results over %.1fs (%d ticks, %d accel samples cut):\n", res.Duration, res.Ticks, res.AccelCuts)
	for i, a := range res.Errors {
		fmt.Printf("\t%-5s %s\n", sim.Axes[i], a)
	}

	if rec != nil {
		files, err := sim.Plot(rec.Samples, plotDir, sit.Name)
		if err != nil {
			log.Fatalln(err)
		}
		for _, fn := range files {
			log.Printf("Wrote %s\n", fn)
		}
	}
}
