/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/dc0d/onexit"
	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/kvd/engine"
	"github.com/launix-de/kvd/server"
	"github.com/launix-de/kvd/threadpool"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "TCP address to listen on")
	dataDir := flag.String("data-dir", "./data", "directory holding the log generations")
	engineName := flag.String("engine", "bitcask", "storage engine: bitcask or planks")
	poolKind := flag.String("pool", "guarded", "thread pool: guarded or stealing")
	poolSize := flag.Int("pool-size", 8, "number of pool workers")
	thresholdStr := flag.String("compaction-threshold", "1MiB", "uncompacted bytes that trigger a compaction")
	archiveKind := flag.String("archive", "none", "archival tier for retired generations: none, local, s3, ceph")
	archiveDir := flag.String("archive-dir", "./archive", "directory for the local archive tier")
	archivePrefix := flag.String("archive-prefix", "kvd", "object key prefix used by the s3 and ceph archive tiers")
	s3Bucket := flag.String("s3-bucket", "", "bucket archived generations are uploaded to (--archive=s3)")
	s3Region := flag.String("s3-region", "", "AWS region for the s3 archive tier")
	s3Endpoint := flag.String("s3-endpoint", "", "S3-compatible endpoint, e.g. a MinIO URL (--archive=s3)")
	s3AccessKeyID := flag.String("s3-access-key-id", "", "access key for the s3 archive tier")
	s3SecretAccessKey := flag.String("s3-secret-access-key", "", "secret key for the s3 archive tier")
	s3ForcePathStyle := flag.Bool("s3-force-path-style", false, "use path-style S3 addressing (required by most MinIO setups)")
	cephPool := flag.String("ceph-pool", "", "RADOS pool archived generations are written to (--archive=ceph)")
	cephUser := flag.String("ceph-user", "client.admin", "RADOS user name for the ceph archive tier")
	cephClusterName := flag.String("ceph-cluster-name", "ceph", "cluster name for the ceph archive tier")
	cephConfFile := flag.String("ceph-conf-file", "", "path to ceph.conf; empty uses the default search path")
	statsAddr := flag.String("stats-addr", "", "optional address for the live stats websocket endpoint")
	flag.Parse()

	logger := log.New(os.Stderr, "kvd-server: ", log.LstdFlags)

	if err := server.EnsureEngineChoice(*dataDir, *engineName); err != nil {
		logger.Fatal(err)
	}

	threshold, err := units.RAMInBytes(*thresholdStr)
	if err != nil {
		logger.Fatalf("config: invalid --compaction-threshold %q: %v", *thresholdStr, err)
	}

	var archiveTier engine.ArchiveTier
	switch *archiveKind {
	case "none":
	case "local":
		archiveTier, err = engine.NewLocalLZ4Archive(*archiveDir)
	case "s3":
		if *s3Bucket == "" {
			logger.Fatal("config: --archive=s3 requires --s3-bucket")
		}
		store := engine.NewS3ColdStore(engine.S3Config{
			AccessKeyID:     *s3AccessKeyID,
			SecretAccessKey: *s3SecretAccessKey,
			Region:          *s3Region,
			Endpoint:        *s3Endpoint,
			Bucket:          *s3Bucket,
			ForcePathStyle:  *s3ForcePathStyle,
		})
		archiveTier = engine.NewRemoteArchive(store, *archivePrefix)
	case "ceph":
		if *cephPool == "" {
			logger.Fatal("config: --archive=ceph requires --ceph-pool")
		}
		store := engine.NewCephColdStore(engine.CephConfig{
			UserName:    *cephUser,
			ClusterName: *cephClusterName,
			ConfFile:    *cephConfFile,
			Pool:        *cephPool,
		})
		archiveTier = engine.NewRemoteArchive(store, *archivePrefix)
	default:
		logger.Fatalf("config: unknown --archive %q", *archiveKind)
	}
	if err != nil {
		logger.Fatalf("config: opening archive tier: %v", err)
	}

	var eng engine.Engine
	switch *engineName {
	case "bitcask":
		be, err := engine.Open(engine.Config{
			DataDir:             *dataDir,
			CompactionThreshold: threshold,
			Archive:             archiveTier,
			Logger:              logger,
		})
		if err != nil {
			logger.Fatalf("engine: %v", err)
		}
		eng = be
		if *statsAddr != "" {
			go serveStats(*statsAddr, be, logger)
		}
	case "planks":
		pe, err := engine.OpenPlanks(*dataDir)
		if err != nil {
			logger.Fatalf("engine: %v", err)
		}
		eng = pe
	default:
		logger.Fatalf("config: unknown --engine %q", *engineName)
	}

	var pool threadpool.Pool
	switch *poolKind {
	case "guarded":
		pool, err = threadpool.NewGuardedPool(*poolSize, logger)
	case "stealing":
		pool, err = threadpool.NewStealingPool(*poolSize)
	default:
		logger.Fatalf("config: unknown --pool %q", *poolKind)
	}
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	watchDataDir(*dataDir, logger)

	srv, err := server.New(*addr, eng, pool, logger)
	if err != nil {
		logger.Fatalf("server: %v", err)
	}

	onexit.Register(func() {
		logger.Print("shutting down")
		srv.Close()
		pool.Close()
		eng.Close()
	})

	logger.Printf("listening on %s (engine=%s pool=%s)", *addr, *engineName, *poolKind)
	if err := srv.Serve(); err != nil {
		logger.Printf("server stopped: %v", err)
	}
}

func serveStats(addr string, eng *engine.BitcaskEngine, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/debug/stream", &server.StatsHandler{Src: eng, Logger: logger})
	logger.Printf("stats stream on %s/debug/stream", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("stats: %v", err)
	}
}

// watchDataDir backs the "data directory is owned exclusively by one
// engine instance" policy from §5 with a warning only: it logs every file
// creation or removal in the directory. It does not tell the engine's own
// log generations apart from external changes, so compaction's files are
// reported too, and it never blocks or undoes a change.
func watchDataDir(dir string, logger *log.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Printf("fsnotify: %v, continuing without directory watch", err)
		return
	}
	if err := watcher.Add(dir); err != nil {
		logger.Printf("fsnotify: watch %s: %v", dir, err)
		return
	}
	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Create|fsnotify.Remove) != 0 {
				logger.Printf("warning: external change to data directory detected: %s", event)
			}
		}
	}()
}
