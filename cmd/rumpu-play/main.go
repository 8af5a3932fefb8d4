package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
	"github.com/vsariola/rumpu/oto"
	"github.com/vsariola/rumpu/version"
)

var (
	bars        = pflag.IntP("bars", "b", 4, "number of times the step grid is repeated")
	tail        = pflag.Float64P("tail", "t", 2, "seconds of ring-out rendered after the last bar")
	versionFlag = pflag.BoolP("version", "v", false, "print version and exit")
	help        = pflag.BoolP("help", "h", false, "show help")
)

func main() {
	pflag.Usage = printUsage
	pflag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if pflag.NArg() == 0 || *help {
		pflag.Usage()
		os.Exit(0)
	}
	audioContext, err := oto.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", engine.ErrBackendUnavailable, err)
		os.Exit(1)
	}
	process := func(filename string) error {
		session, err := engine.LoadSessionFile(filename)
		if err != nil {
			return err
		}
		buffer, err := engine.Render(session, *bars, *tail)
		if err != nil {
			return fmt.Errorf("could not render the session: %w", err)
		}
		var maxLevel float32
		for _, frame := range buffer {
			maxLevel = max(maxLevel, max(frame[0], -frame[0]), max(frame[1], -frame[1]))
		}
		fmt.Printf("%s: %d bpm, %.1f seconds, peak %.2f\n", filename, session.BPM,
			float64(len(buffer))/rumpu.SampleRate, maxLevel)
		return audioContext.Play(buffer.Source()).Wait()
	}
	retval := 0
	for _, param := range pflag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			files = append(ymlfiles, jsonfiles...)
		}
		for _, file := range files {
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not play %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Play rumpu session files through the speakers.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	pflag.PrintDefaults()
}
