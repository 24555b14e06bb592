// Command echowm runs the watermarking pipeline one stage at a time on local files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"watermark-backend/audio"
	"watermark-backend/config"
	"watermark-backend/evaluate"
	"watermark-backend/keys"
	"watermark-backend/persist"
	"watermark-backend/watermark"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <keys|params|embed|detect|evaluate> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "run '%s <command> -h' for the flags of a command\n", os.Args[0])
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "keys":
		err = runKeys(os.Args[2:])
	case "params":
		err = runParams(os.Args[2:])
	case "embed":
		err = runEmbed(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "evaluate":
		err = runEvaluate(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func loadConfig(path string) (watermark.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return watermark.Config{}, err
	}
	return cfg.Watermark, nil
}

func runKeys(args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	original := fs.String("watermark_original_file", "watermark_ori.dat", "output file for the original watermark")
	extended := fs.String("watermark_extended_file", "watermark_extended.dat", "output file for the extended watermark")
	keyFile := fs.String("secret_key_file", "secret_key.dat", "output file for the extended secret key")
	passphrase := fs.String("passphrase", "", "derive bits deterministically from a passphrase")
	nbit := fs.Int("bits", 0, "watermark length in bits (default: max_effective_bits)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *nbit == 0 {
		*nbit = cfg.MaxEffectiveBits
	}

	gen := keys.NewRandomGenerator()
	if *passphrase != "" {
		gen = keys.NewPassphraseGenerator(*passphrase)
	}
	session, err := gen.GenerateSession(*nbit, cfg)
	if err != nil {
		return err
	}

	if err := persist.SaveBits(*original, session.Watermark); err != nil {
		return err
	}
	if err := persist.SaveBits(*extended, session.WatermarkExtended); err != nil {
		return err
	}
	if err := persist.SaveBits(*keyFile, session.SecretKey); err != nil {
		return err
	}
	log.Printf("keys: wrote %s, %s and %s", *original, *extended, *keyFile)
	return nil
}

func runParams(args []string) error {
	fs := flag.NewFlagSet("params", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	hostFile := fs.String("host_signal_file", "host.wav", "input audio file")
	output := fs.String("output_file", "embed_params.dat", "output file for parameters")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	log.Printf("params: reading %s", *hostFile)
	host, _, err := audio.NewAudioDecoder().ReadFile(*hostFile)
	if err != nil {
		return err
	}

	params, err := watermark.ComputeParameters(len(host), cfg)
	if err != nil {
		return err
	}
	if err := persist.SaveParams(*output, params); err != nil {
		return err
	}
	log.Printf("params: wrote %s", *output)

	fmt.Printf("frame_shift = %d\n", params.FrameShift)
	fmt.Printf("embed_nbit = %d\n", params.EmbedBitCount)
	fmt.Printf("effective_nbit = %d\n", params.EffectiveBitCount)
	if params.Capped {
		fmt.Printf("capacity capped at %d effective bits (signal holds %d frames)\n",
			params.EffectiveBitCount, params.RawBitCount)
	}
	return nil
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	hostFile := fs.String("host_signal_file", "host.wav", "input audio file")
	wmFile := fs.String("watermark_extended_file", "watermark_extended.dat", "extended watermark file")
	keyFile := fs.String("secret_key_file", "secret_key.dat", "secret key file")
	paramsFile := fs.String("params_file", "embed_params.dat", "parameters file")
	output := fs.String("output_file", "wmed_signal1.wav", "output watermarked audio file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ad := audio.NewAudioDecoder()
	host, rate, err := ad.ReadFile(*hostFile)
	if err != nil {
		return err
	}
	params, err := persist.LoadParams(*paramsFile, cfg.FrameLength)
	if err != nil {
		return err
	}
	wm, err := persist.LoadBits(*wmFile)
	if err != nil {
		return err
	}
	key, err := persist.LoadBits(*keyFile)
	if err != nil {
		return err
	}

	log.Printf("embed: %d bits into %s (%s echo)", params.EmbedBitCount, *hostFile, cfg.Kernel)
	embedder, err := watermark.NewEmbedder(cfg, params)
	if err != nil {
		return err
	}
	marked, err := embedder.Embed(host, wm, key)
	if err != nil {
		return err
	}
	if err := ad.WriteWAV(*output, marked, rate); err != nil {
		return err
	}

	log.Printf("embed: wrote %s", *output)
	return nil
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	signalFile := fs.String("watermark_signal_file", "", "input watermarked audio file (required)")
	keyFile := fs.String("secret_key_file", "secret_key.dat", "secret key file")
	paramsFile := fs.String("params_file", "embed_params.dat", "parameters file")
	output := fs.String("output_file", "detected_bits.dat", "output file for detected bits")
	signalType := fs.String("signal_type", "", "detection mode: signal1, signal2 or signal3 (required)")
	fs.Parse(args)

	if *signalFile == "" || *signalType == "" {
		fs.Usage()
		return fmt.Errorf("-watermark_signal_file and -signal_type are required")
	}
	mode, err := watermark.ParseDetectionMode(*signalType)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	signal, _, err := audio.NewAudioDecoder().ReadFile(*signalFile)
	if err != nil {
		return err
	}
	params, err := persist.LoadParams(*paramsFile, cfg.FrameLength)
	if err != nil {
		return err
	}
	key, err := persist.LoadBits(*keyFile)
	if err != nil {
		return err
	}

	log.Printf("detect: %d bits from %s in mode %s", params.EmbedBitCount, *signalFile, mode)
	detector, err := watermark.NewDetector(cfg, params, mode)
	if err != nil {
		return err
	}
	bits, err := detector.Detect(signal, key)
	if err != nil {
		return err
	}
	if err := persist.SaveBits(*output, bits); err != nil {
		return err
	}

	log.Printf("detect: wrote %s", *output)
	fmt.Printf("Detected bits: %s\n", bits)
	return nil
}

func runEvaluate(args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	hostFile := fs.String("host_signal_file", "host.wav", "original audio file")
	signalFile := fs.String("watermark_signal_file", "", "watermarked audio file (required)")
	wmFile := fs.String("watermark_original_file", "watermark_ori.dat", "original watermark file")
	detectedFile := fs.String("detected_bits_file", "", "detected bits file (required)")
	paramsFile := fs.String("params_file", "embed_params.dat", "parameters file")
	fs.Parse(args)

	if *signalFile == "" || *detectedFile == "" {
		fs.Usage()
		return fmt.Errorf("-watermark_signal_file and -detected_bits_file are required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ad := audio.NewAudioDecoder()
	host, _, err := ad.ReadFile(*hostFile)
	if err != nil {
		return err
	}
	marked, _, err := ad.ReadFile(*signalFile)
	if err != nil {
		return err
	}
	params, err := persist.LoadParams(*paramsFile, cfg.FrameLength)
	if err != nil {
		return err
	}
	original, err := persist.LoadBits(*wmFile)
	if err != nil {
		return err
	}
	detected, err := persist.LoadBits(*detectedFile)
	if err != nil {
		return err
	}
	if len(original) < params.EffectiveBitCount {
		return &watermark.SequenceLengthMismatchError{
			Name:     "original watermark",
			Expected: params.EffectiveBitCount,
			Actual:   len(original),
		}
	}

	log.Printf("evaluate: %s against %s", *signalFile, *hostFile)
	report, err := evaluate.Evaluate(detected, original[:params.EffectiveBitCount], cfg.Reps(), host, marked)
	if err != nil {
		return err
	}

	fmt.Printf("BER: %.2f%%\n", report.BER)
	fmt.Printf("SNR: %.2f dB\n", report.SNR)
	return nil
}
