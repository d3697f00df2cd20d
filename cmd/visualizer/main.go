// Command visualizer streams raw PCM audio and drives WiZ bulbs in time
// with the music. Input is raw PCM on stdin or from a file, e.g.:
//
//	parec --format=s16le --rate=44100 | visualizer -lights 10.0.0.42
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/api"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/audio"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/autodj"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/config"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/dispatch"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/source"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/telemetry"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/version"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/visualizer"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/wiz"
)

var (
	pcmPath    = flag.String("pcm", "-", "Raw PCM input file, or '-' for stdin")
	format     = flag.String("format", "s16le", "PCM sample format: s16le or f32le")
	rate       = flag.Int("rate", 44100, "PCM sample rate in Hz")
	channels   = flag.Int("channels", 2, "PCM channel count")
	frameSize  = flag.Int("frame", 1024, "Analysis frame size in samples")
	toneHz     = flag.Float64("tone", 0, "Generate a test tone at this frequency instead of reading PCM")
	lights     = flag.String("lights", "", "Comma-separated bulb addresses (default: discover)")
	numLights  = flag.Int("num-lights", 0, "Number of fixtures to map (default: one per bulb)")
	styleName  = flag.String("style", "spectrum_gradient", "Mapping style (see -list-styles)")
	listStyles = flag.Bool("list-styles", false, "Print available styles and exit")
	auto       = flag.Bool("auto", false, "Switch styles automatically from signal statistics")
	beatFlash  = flag.Bool("beat-flash", false, "Flash white on detected beats")
	listen     = flag.String("listen", "", "HTTP control API listen address (empty: disabled)")
	dbFile     = flag.String("telemetry", "", "Path to session telemetry SQLite file (empty: disabled)")
	configPath = flag.String("config", "", "Path to tuning config JSON (empty: defaults)")
	boost      = flag.Float64("brightness-boost", 0, "Brightness boost override (0: from config)")
	sens       = flag.Float64("sensitivity", 0, "Sensitivity override (0: from config)")
	smoothing  = flag.Float64("smoothing", 0, "Band smoothing override (0: from config)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("visualizer %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listStyles {
		for _, s := range mapper.Styles() {
			fmt.Println(s)
		}
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	style, err := mapper.ParseStyle(*styleName)
	if err != nil {
		log.Fatalf("Invalid style: %v", err)
	}

	// A file input can be scanned up front; live input falls back to the
	// crest-window selector alone.
	smoothDefault := tuning.GetSmoothing()
	sensDefault := tuning.GetSensitivity()
	boostDefault := tuning.GetBrightnessBoost()
	if *auto && *toneHz == 0 && *pcmPath != "-" {
		rec, err := scanFile()
		if err != nil {
			log.Printf("Track scan failed, using defaults: %v", err)
		} else {
			log.Printf("Track scan: %s (rms %.3f, crest %.2f, bass %.0f%%), starting style %s",
				rec.Reason, rec.RMS, rec.CrestFactor, rec.BassRatio*100, rec.Style)
			style = rec.Style
			smoothDefault = rec.Smoothing
			sensDefault = rec.Sensitivity
			boostDefault = rec.BrightnessBoost
		}
	}

	src, closeSrc, err := openSource()
	if err != nil {
		log.Fatalf("Failed to open audio source: %v", err)
	}
	defer closeSrc()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addrs, err := resolveLights(ctx, tuning)
	if err != nil {
		log.Fatalf("Failed to resolve lights: %v", err)
	}
	log.Printf("Driving %d lights: %s", len(addrs), strings.Join(addrs, ", "))

	var senders []dispatch.Sender
	var bulbs []*wiz.Light
	for _, addr := range addrs {
		l := wiz.NewLight(wiz.Config{Addr: addr, Timeout: tuning.GetSendTimeout()})
		bulbs = append(bulbs, l)
		senders = append(senders, visualizer.NewLightSender(l))
	}
	defer func() {
		for _, l := range bulbs {
			l.Close()
		}
	}()

	n := *numLights
	if n <= 0 {
		n = len(addrs)
	}

	pipeline := dispatch.New(dispatch.Config{
		Senders:     senders,
		MinInterval: tuning.GetUpdateInterval(),
		SendTimeout: tuning.GetSendTimeout(),
	})

	analyzer := audio.NewAnalyzer(audio.Config{
		SampleRate:    src.SampleRate(),
		Smoothing:     pick(*smoothing, smoothDefault),
		GainDecay:     tuning.GetGainDecay(),
		BeatThreshold: tuning.GetBeatThreshold(),
	})

	opts := mapper.Options{
		MinBrightness:   tuning.GetMinBrightness(),
		BrightnessBoost: pick(*boost, boostDefault),
		Sensitivity:     pick(*sens, sensDefault),
		NoiseGate:       tuning.GetNoiseGate(),
	}
	newMapper := func(s mapper.Style) mapper.Mapper {
		m := mapper.New(s, opts)
		if *beatFlash {
			m = mapper.NewBeatMapper(m)
		}
		return m
	}

	var recorder *telemetry.Recorder
	sessionID := telemetry.NewSessionID()
	if *dbFile != "" {
		store, err := telemetry.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open telemetry db: %v", err)
		}
		defer store.Close()

		if err := store.BeginSession(telemetry.Session{
			ID:        sessionID,
			Style:     style.String(),
			NumLights: n,
			StartedAt: time.Now().UTC(),
		}); err != nil {
			log.Fatalf("Failed to begin telemetry session: %v", err)
		}
		recorder = telemetry.NewRecorder(store, 0)
		defer func() {
			recorder.Close()
			if err := store.EndSession(sessionID, time.Now().UTC()); err != nil {
				log.Printf("Failed to end telemetry session: %v", err)
			}
		}()
		log.Printf("Recording telemetry to %s as %s", *dbFile, sessionID)
	}

	// The selector's change hook references the session, which is built
	// after the selector; it only fires once the session loop is running.
	var sess *visualizer.Session
	var selector *autodj.Selector
	if *auto {
		selector = autodj.NewSelector(autodj.Config{
			Interval:   tuning.GetModeInterval(),
			UpperCrest: tuning.GetUpperCrest(),
			LowerCrest: tuning.GetLowerCrest(),
			WindowSize: tuning.GetCrestWindow(),
			OnChange: func(mode autodj.Mode, crest float64) {
				st := mode.Style()
				log.Printf("Mode switch: %s (crest %.2f), style %s", mode, crest, st)
				sess.SetMapper(st.String(), newMapper(st))
				sess.SetMode(mode.String())
				if recorder != nil {
					recorder.ModeEvent(telemetry.ModeEvent{
						SessionID: sessionID,
						Mode:      mode.String(),
						MeanCrest: crest,
						Timestamp: time.Now().UTC(),
					})
				}
			},
		})
	}

	sess, err = visualizer.New(visualizer.Config{
		Source:           src,
		Analyzer:         analyzer,
		Mapper:           newMapper(style),
		Pipeline:         pipeline,
		Selector:         selector,
		Recorder:         recorder,
		SessionID:        sessionID,
		NumLights:        n,
		SilenceThreshold: tuning.GetSilenceThreshold(),
		SampleInterval:   time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to build session: %v", err)
	}
	sess.SetMapper(style.String(), newMapper(style))

	var wg sync.WaitGroup

	if *listen != "" {
		srv := &http.Server{
			Addr: *listen,
			Handler: api.LoggingMiddleware(api.NewServer(api.Config{
				Discover: wiz.DiscoverConfig{Timeout: tuning.GetDiscoveryTimeout()},
				Timeout:  tuning.GetSendTimeout(),
				Session:  sess,
			}).ServeMux()),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Control API listening on %s", *listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP server error: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Dispatch loop error: %v", err)
		}
	}()

	if err := sess.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("Session error: %v", err)
	}

	stop()
	pipeline.Stop()
	wg.Wait()

	sent, throttled, failed, timedOut := pipeline.Stats()
	log.Printf("Session done: sent=%d throttled=%d failed=%d timeout=%d", sent, throttled, failed, timedOut)
}

// pick prefers the flag override when set.
func pick(flagVal, cfgVal float64) float64 {
	if flagVal > 0 {
		return flagVal
	}
	return cfgVal
}

// scanFile decodes the whole PCM file and recommends a starting style.
func scanFile() (autodj.Recommendation, error) {
	f, err := source.ParseFormat(*format)
	if err != nil {
		return autodj.Recommendation{}, err
	}
	r, err := os.Open(*pcmPath)
	if err != nil {
		return autodj.Recommendation{}, fmt.Errorf("failed to open %s: %w", *pcmPath, err)
	}
	defer r.Close()

	src, err := source.NewPCM(r, source.PCMConfig{
		SampleRate: *rate,
		Channels:   *channels,
		Format:     f,
		FrameSize:  *frameSize,
	})
	if err != nil {
		return autodj.Recommendation{}, err
	}

	var samples []float64
	for {
		frame, err := src.Read(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			return autodj.Recommendation{}, err
		}
		samples = append(samples, frame...)
	}
	return autodj.ScanTrack(samples, *rate)
}

func openSource() (source.Source, func(), error) {
	if *toneHz > 0 {
		src := source.NewSynthetic(source.SyntheticConfig{
			SampleRate: *rate,
			FrameSize:  *frameSize,
			FreqHz:     *toneHz,
			Realtime:   true,
		})
		return src, func() {}, nil
	}

	f, err := source.ParseFormat(*format)
	if err != nil {
		return nil, nil, err
	}

	var r *os.File
	closeFn := func() {}
	if *pcmPath == "-" {
		r = os.Stdin
	} else {
		r, err = os.Open(*pcmPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", *pcmPath, err)
		}
		closeFn = func() { r.Close() }
	}

	src, err := source.NewPCM(r, source.PCMConfig{
		SampleRate: *rate,
		Channels:   *channels,
		Format:     f,
		FrameSize:  *frameSize,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return src, closeFn, nil
}

func resolveLights(ctx context.Context, tuning *config.TuningConfig) ([]string, error) {
	if *lights != "" {
		var addrs []string
		for _, a := range strings.Split(*lights, ",") {
			if a = strings.TrimSpace(a); a != "" {
				addrs = append(addrs, a)
			}
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no valid addresses in -lights %q", *lights)
		}
		return addrs, nil
	}

	log.Printf("Discovering lights...")
	found, err := wiz.Discover(ctx, wiz.DiscoverConfig{Timeout: tuning.GetDiscoveryTimeout()})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, wiz.ErrNoLights
	}
	addrs := make([]string, len(found))
	for i, d := range found {
		addrs[i] = d.Addr
	}
	return addrs, nil
}
