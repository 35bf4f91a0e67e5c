// Command mp4probe gathers information about tracks and keyframe distribution from an MP4 file.
package main

import (
	"fmt"
	"os"

	"github.com/tetsuo/mp4"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.mp4>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	d, err := mp4.ReadHeaders(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range d.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	for i, track := range d.Tracks {
		desc, err := track.Descriptor(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Track %d: %v\n\n", i, err)
			continue
		}
		samples := mp4.CompileSamples(track.Tables)

		fmt.Printf("Track %d: %s\n", i, desc.CodecID)
		fmt.Printf("  Total samples: %d\n", len(samples))
		fmt.Printf("  Duration: %.2fs\n", float64(track.Duration)/float64(track.Timescale))
		fmt.Printf("  TimeScale: %d\n\n", track.Timescale)

		keyframes := 0
		var prevKfTime float64
		var intervals []float64

		fmt.Println("  Keyframes:")
		for j, s := range samples {
			if !s.IsSync {
				continue
			}
			pts := float64(s.DecodeTime) / float64(track.Timescale)
			fmt.Printf("    [%5d] %.3fs", j, pts)

			if keyframes > 0 {
				interval := pts - prevKfTime
				intervals = append(intervals, interval)
				fmt.Printf(" (%.3fs since last)", interval)
			}
			fmt.Println()

			prevKfTime = pts
			keyframes++

			if keyframes >= 20 {
				fmt.Printf("    ... (%d more keyframes)\n", countKeyframes(samples[j+1:]))
				break
			}
		}

		fmt.Printf("\n  Total keyframes: %d\n", countKeyframes(samples))
		if len(intervals) > 0 {
			fmt.Printf("  Keyframe interval: avg=%.3fs min=%.3fs max=%.3fs\n",
				average(intervals), minimum(intervals), maximum(intervals))
		}
		fmt.Println()
	}
}

func countKeyframes(samples []mp4.Sample) int {
	count := 0
	for _, s := range samples {
		if s.IsSync {
			count++
		}
	}
	return count
}

func average(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func minimum(vals []float64) float64 {
	min := vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
	}
	return min
}

func maximum(vals []float64) float64 {
	max := vals[0]
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}
