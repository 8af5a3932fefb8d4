package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vsariola/rumpu/engine"
	"github.com/vsariola/rumpu/version"
)

var (
	stdout      = pflag.BoolP("stdout", "s", false, "do not write files; write to standard output instead")
	directory   = pflag.StringP("output", "o", "", "directory where to output all files; created if needed. By default, everything is placed in the same directory as the session file")
	rawOut      = pflag.BoolP("raw", "r", false, "output the rendered session as a .raw file, a headerless stereo sample dump")
	wavOut      = pflag.BoolP("wav", "w", false, "output the rendered session as a .wav file (default when nothing else is chosen)")
	pcm         = pflag.BoolP("pcm", "c", false, "convert audio to 16-bit signed PCM when outputting; the default is float32")
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
	if !*rawOut {
		*wavOut = true
	}
	retval := 0
	for _, param := range pflag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not export %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func process(filename string) error {
	session, err := engine.LoadSessionFile(filename)
	if err != nil {
		return err
	}
	buffer, err := engine.Render(session, *bars, *tail)
	if err != nil {
		return fmt.Errorf("could not render the session: %w", err)
	}
	if *rawOut {
		raw, err := buffer.Raw(*pcm)
		if err != nil {
			return fmt.Errorf("could not generate a .raw file: %w", err)
		}
		if err := output(filename, ".raw", raw); err != nil {
			return err
		}
	}
	if *wavOut {
		wav, err := buffer.Wav(*pcm)
		if err != nil {
			return fmt.Errorf("could not generate a .wav file: %w", err)
		}
		if err := output(filename, ".wav", wav); err != nil {
			return err
		}
	}
	return nil
}

func output(filename, extension string, contents []byte) error {
	if *stdout {
		_, err := os.Stdout.Write(contents)
		return err
	}
	dir, name := filepath.Split(filename)
	if *directory != "" {
		dir = *directory
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", dir, err)
		}
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	fmt.Println(path)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Render rumpu session files to audio files.\nUsage: %s [flags] [session.yml ...]\n", os.Args[0])
	pflag.PrintDefaults()
}
