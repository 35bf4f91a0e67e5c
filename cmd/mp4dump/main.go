// Command mp4dump reads an MP4 file and prints its box structure.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/tetsuo/mp4"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.mp4>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	sc := mp4.NewScanner(f)
	for sc.Next() {
		e := sc.Entry()
		fmt.Printf("[%s] size=%d offset=%d\n", e.Type, e.Size, e.Offset)

		switch e.Type {
		case mp4.TypeMoov:
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				fmt.Fprintf(os.Stderr, "error reading moov: %v\n", err)
				os.Exit(1)
			}
			r := mp4.NewReader(buf)
			dumpTree(&r, 1)
			if err := r.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "error parsing moov: %v\n", err)
				os.Exit(1)
			}
		case mp4.TypeFtyp:
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				fmt.Fprintf(os.Stderr, "error reading ftyp: %v\n", err)
				os.Exit(1)
			}
			ft := mp4.ReadFtyp(buf)
			compat := make([]string, len(ft.Compatible))
			for i, c := range ft.Compatible {
				compat[i] = string(c[:])
			}
			fmt.Printf("  brand=%s version=%d compatible=[%s]\n",
				string(ft.MajorBrand[:]), ft.MinorVersion, strings.Join(compat, ","))
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "scan error: %v\n", err)
		os.Exit(1)
	}
}

func dumpTree(r *mp4.Reader, depth int) {
	for r.Next() {
		printEntry(r, depth)

		switch {
		case mp4.IsContainerBox(r.Type()):
			r.Enter()
			dumpTree(r, depth+1)
			r.Exit()
		case r.Type() == mp4.TypeStsd:
			r.Enter()
			r.Skip(4) // entry_count
			for r.Next() {
				dumpSampleEntry(r, depth+1)
			}
			r.Exit()
		}
	}
}

func dumpSampleEntry(r *mp4.Reader, depth int) {
	switch r.Type() {
	case mp4.TypeAvc1, mp4.TypeVp09, mp4.TypeMp4v:
		v := mp4.ReadVisualSampleEntry(r.Data())
		printIndent(depth, "[%s] size=%d %dx%d", r.Type(), r.Size(), v.Width, v.Height)
		r.Enter()
		r.Skip(v.ChildOffset)
		dumpTree(r, depth+1)
		r.Exit()
	default:
		printEntry(r, depth)
	}
}

func printEntry(r *mp4.Reader, depth int) {
	vf := ""
	if mp4.IsFullBox(r.Type()) {
		vf = fmt.Sprintf(" v=%d flags=0x%06x", r.Version(), r.Flags())
	}
	printIndent(depth, "[%s] size=%d%s%s", r.Type(), r.Size(), vf, boxInfo(r))
}

func printIndent(depth int, format string, args ...any) {
	fmt.Print(strings.Repeat("  ", depth))
	fmt.Printf(format, args...)
	fmt.Println()
}

func boxInfo(r *mp4.Reader) string {
	switch r.Type() {
	case mp4.TypeMvhd:
		timescale, duration, nextTrackId := r.ReadMvhd()
		return fmt.Sprintf(" timescale=%d duration=%d nextTrackId=%d", timescale, duration, nextTrackId)
	case mp4.TypeTkhd:
		trackId, duration, width, height := r.ReadTkhd()
		return fmt.Sprintf(" trackId=%d duration=%d size=%dx%d", trackId, duration, width>>16, height>>16)
	case mp4.TypeMdhd:
		timescale, duration, lang := r.ReadMdhd()
		return fmt.Sprintf(" timescale=%d duration=%d lang=%d", timescale, duration, lang)
	case mp4.TypeHdlr:
		handlerType := r.ReadHdlr()
		return fmt.Sprintf(" type=%s name=%q", string(handlerType[:]), r.ReadHdlrName())
	case mp4.TypeStsd:
		return fmt.Sprintf(" entries=%d", r.EntryCount())
	case mp4.TypeStsz:
		_, count, _ := mp4.DecodeStsz(r.Data())
		return fmt.Sprintf(" entries=%d", count)
	case mp4.TypeStco:
		return fmt.Sprintf(" entries=%d", len(mp4.DecodeStco(r.Data()).Values))
	case mp4.TypeCo64:
		return fmt.Sprintf(" entries=%d", len(mp4.DecodeCo64(r.Data()).Values))
	case mp4.TypeStts:
		return fmt.Sprintf(" entries=%d", len(mp4.DecodeStts(r.Data())))
	case mp4.TypeStsc:
		return fmt.Sprintf(" entries=%d", len(mp4.DecodeStsc(r.Data())))
	case mp4.TypeStss:
		return fmt.Sprintf(" entries=%d", len(mp4.DecodeStss(r.Data())))
	case mp4.TypeAvcC:
		return fmt.Sprintf(" codec=%s", mp4.ReadAvcC(r.Data()))
	case mp4.TypeVpcC:
		cfg, err := mp4.DecodeVP9CodecConfig(r.Data())
		if err != nil {
			return fmt.Sprintf(" error=%v", err)
		}
		return fmt.Sprintf(" profile=%d level=%d bitDepth=%d", cfg.Profile, cfg.Level, cfg.BitDepth)
	case mp4.TypeEsds:
		return fmt.Sprintf(" codec=%s", mp4.ReadEsdsCodec(r.Data()))
	case mp4.TypeMdat:
		return fmt.Sprintf(" dataLength=%d", len(r.Data()))
	}
	return ""
}
