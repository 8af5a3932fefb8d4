package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/pflag"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/cmd"
	"github.com/vsariola/rumpu/engine"
	"github.com/vsariola/rumpu/oto"
	"github.com/vsariola/rumpu/tui"
	"github.com/vsariola/rumpu/version"
)

var (
	cpuprofile  = pflag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile  = pflag.String("memprofile", "", "write memory profile to `file`")
	midiInput   = pflag.String("midi-input", "", "connect MIDI input to the first device whose name contains `name`")
	listMidi    = pflag.Bool("list-midi-inputs", false, "list the available MIDI input devices and exit")
	versionFlag = pflag.BoolP("version", "v", false, "print version and exit")
)

func main() {
	pflag.Usage = printUsage
	pflag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	var f *os.File
	if *cpuprofile != "" {
		var err error
		f, err = os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
	}
	broker := engine.NewBroker()
	midiContext := cmd.NewMidiContext(broker)
	defer midiContext.Close()
	if *listMidi {
		for _, name := range midiContext.ListInputDevices() {
			fmt.Println(name)
		}
		os.Exit(0)
	}
	if pflag.CommandLine.Changed("midi-input") {
		if !midiContext.TryToOpenBy(*midiInput, *midiInput == "") {
			log.Printf("no MIDI input device found matching %q", *midiInput)
		}
	}
	session := engine.DefaultSession()
	path := ""
	if args := pflag.Args(); len(args) > 0 {
		path = args[0]
		if _, err := os.Stat(path); err == nil {
			session, err = engine.LoadSessionFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
	}
	audioContext, err := oto.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", engine.ErrBackendUnavailable, err)
		os.Exit(1)
	}
	player := engine.NewPlayer(broker, audioContext, session)
	playWaiter := audioContext.Play(func(buf rumpu.AudioBuffer) error {
		player.Process(buf, midiContext)
		return nil
	})
	// if the audio backend dies, ask the UI to exit instead of leaving a
	// silent but running terminal
	go func() {
		if err := playWaiter.Wait(); err != nil {
			log.Printf("audio playback stopped: %v", err)
		}
		engine.TrySend(broker.CloseUI, struct{}{})
	}()
	model := tui.NewModel(broker, session, path, engine.LoadPresets())
	if err := tui.Run(model); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	playWaiter.Close()
	if *cpuprofile != "" {
		pprof.StopCPUProfile()
		f.Close()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Terminal drum machine.\nUsage: %s [flags] [session.yml]\n", os.Args[0])
	pflag.PrintDefaults()
}
