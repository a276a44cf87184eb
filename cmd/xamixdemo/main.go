//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

// Command xamixdemo drives the xamix engine end to end against WAV
// fixtures, for manual listening and fixture-driven development. It is a
// harness, not a device layer: it only ever opens files.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/keereets/xamix"
)

// runConfig is the YAML run description: the voice topology, the buffers
// each source voice queues, and how many ticks to run.
type runConfig struct {
	SampleRate     uint32           `yaml:"sampleRate"`
	Channels       int              `yaml:"channels"`
	SubmixStages   int              `yaml:"submixStages"`
	SamplesPerTick int              `yaml:"samplesPerTick"`
	Ticks          int              `yaml:"ticks"`
	Submixes       []submixConfig   `yaml:"submixes"`
	Sources        []sourceConfig   `yaml:"sources"`
}

type submixConfig struct {
	Name     string `yaml:"name"`
	Channels int    `yaml:"channels"`
	Stage    int    `yaml:"stage"`
	SendTo   string `yaml:"sendTo"` // "master" or another submix's name
}

type sourceConfig struct {
	Name       string  `yaml:"name"`
	WavFile    string  `yaml:"wavFile"`
	FreqRatio  float64 `yaml:"freqRatio"`
	SendTo     string  `yaml:"sendTo"`
	LoopCount  int     `yaml:"loopCount"`
	EndOfLoop  bool    `yaml:"endOfStream"`
}

func main() {
	runFile := pflag.StringP("run", "r", "", "path to a YAML run description")
	outFile := pflag.StringP("out", "o", "out.wav", "path to write the mixed master output WAV")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	help := pflag.BoolP("help", "h", false, "display help text")
	pflag.Parse()

	if *help || *runFile == "" {
		pflag.Usage()
		os.Exit(0)
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := loadRunConfig(*runFile)
	if err != nil {
		log.Fatal("loading run file", "err", err)
	}

	if err := runDemo(cfg, *outFile); err != nil {
		log.Fatal("running demo", "err", err)
	}
}

func loadRunConfig(path string) (*runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if cfg.SamplesPerTick == 0 {
		cfg.SamplesPerTick = 1024
	}
	if cfg.Ticks == 0 {
		cfg.Ticks = 1
	}
	if cfg.SubmixStages == 0 {
		cfg.SubmixStages = 1
	}
	return &cfg, nil
}

func runDemo(cfg *runConfig, outPath string) error {
	eng := xamix.NewEngine(cfg.SampleRate, cfg.Channels, cfg.SubmixStages, cfg.SamplesPerTick)

	submixes := make(map[string]*xamix.Voice, len(cfg.Submixes))
	for _, sc := range cfg.Submixes {
		v := xamix.NewSubmixVoice(sc.Name, cfg.SampleRate, sc.Channels, sc.Stage)
		submixes[sc.Name] = v
		eng.AddSubmixVoice(v)
	}
	for _, sc := range cfg.Submixes {
		dst := resolveDestination(eng, submixes, sc.SendTo)
		submixes[sc.Name].Sends = []xamix.Send{xamix.NewIdentitySend(dst, sc.Channels)}
	}

	for _, src := range cfg.Sources {
		format, buf, err := loadWavBuffer(src.WavFile)
		if err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}

		voice, err := xamix.NewSourceVoice(src.Name, format, cfg.SamplesPerTick, cfg.SamplesPerTick*2, nil)
		if err != nil {
			return fmt.Errorf("creating voice %q: %w", src.Name, err)
		}
		if src.FreqRatio != 0 {
			if err := voice.SetFrequencyRatio(src.FreqRatio); err != nil {
				return fmt.Errorf("setting frequency ratio for %q: %w", src.Name, err)
			}
		}

		if src.EndOfLoop {
			buf.Flags |= xamix.BufferEndOfStream
		}
		buf.LoopCount = src.LoopCount
		if err := voice.QueueBuffer(buf); err != nil {
			return fmt.Errorf("queueing buffer for %q: %w", src.Name, err)
		}

		dst := resolveDestination(eng, submixes, src.SendTo)
		voice.Sends = []xamix.Send{xamix.NewIdentitySend(dst, format.Channels)}
		eng.AddSourceVoice(voice)

		log.Debug("queued source voice", "name", src.Name, "sampleRate", format.SampleRate, "channels", format.Channels)
	}

	masterChannels := cfg.Channels
	totalFrames := cfg.Ticks * cfg.SamplesPerTick
	master := make([]float32, 0, totalFrames*masterChannels)

	tick := make([]float32, cfg.SamplesPerTick*masterChannels)
	for i := 0; i < cfg.Ticks; i++ {
		eng.UpdateEngine(tick, cfg.SamplesPerTick)
		master = append(master, tick...)
	}

	return writeWavFile(outPath, master, cfg.SampleRate, masterChannels)
}

func resolveDestination(eng *xamix.Engine, submixes map[string]*xamix.Voice, name string) *xamix.Voice {
	if name == "" || name == "master" {
		return eng.Master
	}
	if v, ok := submixes[name]; ok {
		return v
	}
	log.Warn("unknown send destination, defaulting to master", "name", name)
	return eng.Master
}

// loadWavBuffer reads a WAV file into a xamix.Buffer of raw PCM bytes, along
// with the SourceFormat describing it, via go-audio/wav's decoder.
func loadWavBuffer(path string) (xamix.SourceFormat, *xamix.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return xamix.SourceFormat{}, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return xamix.SourceFormat{}, nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	pcmBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		return xamix.SourceFormat{}, nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	sampleRate := decoder.SampleRate

	data := pcmIntsToBytes(pcmBuf, bitDepth)

	format := xamix.SourceFormat{
		Tag:           xamix.TagPCM,
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bitDepth,
	}
	samplesPerChannel := int64(len(pcmBuf.Data)) / int64(channels)

	buf := &xamix.Buffer{
		Data:       data,
		PlayBegin:  0,
		PlayLength: samplesPerChannel,
	}
	return format, buf, nil
}

func pcmIntsToBytes(buf *audio.IntBuffer, bitDepth int) []byte {
	switch bitDepth {
	case 8:
		out := make([]byte, len(buf.Data))
		for i, s := range buf.Data {
			out[i] = byte(int8(s))
		}
		return out
	default: // 16-bit
		out := make([]byte, len(buf.Data)*2)
		for i, s := range buf.Data {
			v := uint16(int16(s))
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		return out
	}
}

// writeWavFile writes interleaved float32 master output as a 16-bit PCM
// WAV file via go-audio/wav's encoder.
func writeWavFile(path string, samples []float32, sampleRate uint32, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(sampleRate), 16, channels, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = int(v)
	}

	buf := &audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{SampleRate: int(sampleRate), NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return enc.Close()
}
