/*
 * This file is part of Anomos.
 *
 * Anomos is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Anomos is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Anomos.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/lingyu0w0/Anomos/analytics"
	"github.com/lingyu0w0/Anomos/config"
	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/server"
	"github.com/lingyu0w0/Anomos/tracker"
)

var (
	profile    bool
	help       bool
	configPath string
	certFile   string
	keyFile    string
)

// provided at compile-time
var (
	BuildDate    = "0000-00-00T00:00:00+0000"
	BuildVersion = "development"
)

func init() {
	flag.BoolVar(&profile, "P", false, "Generate profiling data for pprof into anomosd.cpu")
	flag.BoolVar(&help, "h", false, "Shows this help dialog")
	flag.StringVar(&configPath, "config", "", "Path to a JSON configuration file (defaults built in if unset)")
	flag.StringVar(&certFile, "cert", "", "Path to the tracker's TLS certificate (defaults to <data_dir>/tracker.crt)")
	flag.StringVar(&keyFile, "key", "", "Path to the tracker's TLS private key (defaults to <data_dir>/tracker.key)")
}

func main() {
	fmt.Printf("anomosd, ver=%s date=%s runtime=%s\n\n", BuildVersion, BuildDate, runtime.Version())

	flag.Parse()

	if help {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()

		return
	}

	runtime.GOMAXPROCS(runtime.NumCPU())

	if profile {
		log.Info.Printf("Running with profiling enabled, found %d CPUs", runtime.NumCPU())

		f, err := os.Create("anomosd.cpu")
		if err != nil {
			log.Fatal.Fatalf("Failed to create profile file: %s\n", err)
		}

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal.Fatalf("Can not start profiling session: %s\n", err)
		}

		defer pprof.StopCPUProfile()
	}

	cfg := config.Default()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatal.Fatalf("Failed to load config: %s\n", err)
		}

		cfg = loaded
	}

	rec, err := analytics.New(cfg.AnalyticsDSN)
	if err != nil {
		log.Fatal.Fatalf("Failed to open analytics database: %s\n", err)
	}

	t := tracker.New(cfg, graph.NewRNG(), rec)
	t.LoadState(cfg.Dfile)

	ctx, cancelMaintenance := context.WithCancel(context.Background())

	go t.RunMaintenance(ctx)

	h := server.New(t)

	if certFile == "" || keyFile == "" {
		certFile, keyFile = server.DefaultCertPaths(cfg.DataDir)
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c

		log.Info.Println("Caught interrupt, shutting down...")

		cancelMaintenance()

		if err := h.Shutdown(); err != nil {
			log.Error.Printf("error during shutdown: %s\n", err)
		}

		if err := t.SaveState(cfg.Dfile); err != nil {
			log.Error.Printf("final state save failed: %s\n", err)
		}

		if err := rec.Close(); err != nil {
			log.Error.Printf("error closing analytics: %s\n", err)
		}

		<-c
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)

	if err := h.ListenAndServeTLS(addr, certFile, keyFile); err != nil {
		log.Fatal.Fatalf("server stopped: %s\n", err)
	}
}
