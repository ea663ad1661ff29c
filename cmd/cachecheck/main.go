// Command cachecheck inspects an on-disk weather cache file offline. It
// validates the file against the expected location identity and age ceiling,
// then prints a summary of the restored timeslices.
//
// Usage:
//
//	go run ./cmd/cachecheck \
//	  -file ~/.cache/meteod/weatherdata_59.91_10.75_23 \
//	  -lat 59.91 -lon 10.75 -msl 23 -offset 120
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/overcastlab/meteod/internal/cache"
	"github.com/overcastlab/meteod/internal/domain"
)

func main() {
	file := flag.String("file", "", "path to the cache file")
	lat := flag.String("lat", "", "latitude the file must belong to")
	lon := flag.String("lon", "", "longitude the file must belong to")
	msl := flag.Int("msl", 0, "elevation in meters the file must belong to")
	offset := flag.Int("offset", 0, "UTC offset in minutes the file must belong to")
	maxAge := flag.Duration("max-age", 48*time.Hour, "maximum acceptable cache age")
	flag.Parse()

	if *file == "" || *lat == "" || *lon == "" {
		flag.Usage()
		os.Exit(1)
	}

	qc := domain.QueryContext{
		Latitude:     *lat,
		Longitude:    *lon,
		ElevationM:   *msl,
		UTCOffsetMin: *offset,
		CacheMaxAge:  *maxAge,
	}

	if code := run(*file, qc); code != 0 {
		os.Exit(code)
	}
}

func run(path string, qc domain.QueryContext) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 1
	}

	intervals, err := cache.Decode(data, qc, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache file rejected: %v\n", err)
		return 1
	}

	fmt.Printf("%s: valid, %d timeslices\n", path, len(intervals))

	var first, last time.Time
	attrCounts := map[string]int{}
	for _, fi := range intervals {
		if first.IsZero() || fi.Start.Before(first) {
			first = fi.Start
		}
		if fi.End.After(last) {
			last = fi.End
		}
		a := fi.Attributes
		countIf(attrCounts, "temperature", a.Temperature != nil)
		countIf(attrCounts, "pressure", a.Pressure != nil)
		countIf(attrCounts, "humidity", a.Humidity != nil)
		countIf(attrCounts, "wind", a.WindSpeed != nil || a.WindDirection != nil)
		countIf(attrCounts, "clouds", a.Cloudiness != nil)
		countIf(attrCounts, "precipitation", a.Precipitation != nil)
		countIf(attrCounts, "symbol", a.Symbol != nil)
	}

	fmt.Printf("  range: %s .. %s\n",
		first.Format(domain.TimeLayout), last.Format(domain.TimeLayout))
	for _, name := range []string{"temperature", "pressure", "humidity", "wind", "clouds", "precipitation", "symbol"} {
		fmt.Printf("  %-13s %d/%d\n", name, attrCounts[name], len(intervals))
	}

	if cur := domain.SelectCurrent(intervals, time.Now().UTC()); cur != nil {
		fmt.Printf("  current: %s .. %s", cur.Start.Format(domain.TimeLayout), cur.End.Format(domain.TimeLayout))
		if cur.Attributes.Temperature != nil {
			fmt.Printf(", temperature %s %s", cur.Attributes.Temperature.Value, cur.Attributes.Temperature.Unit)
		}
		fmt.Println()
	} else {
		fmt.Println("  current: no interval covers the present instant")
	}

	return 0
}

func countIf(counts map[string]int, key string, present bool) {
	if present {
		counts[key]++
	}
}
