// Command calibrate runs the two-point ADC calibration and writes the
// result to the calibration store. Offline maintenance tool: capture
// the averaged raw counts with the input grounded, then with a known
// reference voltage applied, and feed both here.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/secretengineer/GreenOS/internal/calibration"
)

func main() {
	var (
		path       = flag.String("store", "./calibration.bin", "calibration record path")
		zeroRaw    = flag.Float64("zero-raw", -1, "averaged raw ADC count with input grounded")
		refRaw     = flag.Float64("ref-raw", -1, "averaged raw ADC count at the reference voltage")
		refVoltage = flag.Float64("ref-voltage", 2.5, "reference voltage in volts")
		maxRaw     = flag.Int("adc-max", 4095, "full-scale ADC count")
		show       = flag.Bool("show", false, "print the stored record and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := calibration.NewStore(*path, logger)

	if *show {
		rec := store.Load()
		fmt.Printf("offset=%.6f scale=%.6f vref=%.4f tempcoeff=%.6f checksum=%08x\n",
			rec.Offset, rec.Scale, rec.ReferenceVoltage, rec.TempCoefficient, rec.Checksum)
		return
	}

	if *zeroRaw < 0 || *refRaw < 0 {
		fmt.Fprintln(os.Stderr, "both -zero-raw and -ref-raw are required")
		flag.Usage()
		os.Exit(2)
	}

	rec := store.Load()
	rec.Offset = (*zeroRaw / float64(*maxRaw)) * rec.ReferenceVoltage
	measured := (*refRaw / float64(*maxRaw)) * rec.ReferenceVoltage
	if measured == rec.Offset {
		fmt.Fprintln(os.Stderr, "reference reading equals the zero offset; check wiring")
		os.Exit(1)
	}
	rec.Scale = *refVoltage / (measured - rec.Offset)

	if err := store.Save(rec); err != nil {
		fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("calibration saved: offset=%.6f scale=%.6f\n", rec.Offset, rec.Scale)
}
