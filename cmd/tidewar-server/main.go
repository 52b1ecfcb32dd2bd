// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"

	"golang.org/x/net/netutil"

	"github.com/example/tidewar/internal/cloud"
	"github.com/example/tidewar/internal/hub"
	"github.com/example/tidewar/internal/metrics"
)

func main() {
	var (
		auth          string
		port          int
		players       int
		chatLogPath   string
		traceLogPath  string
		serverID      int
		readOnly      bool
		commandsRate  int
		commandsBurst int

		publicIP      string
		region        string
		stage         string
		domain        string
		route53ZoneID string
		serverSlots   int

		certFile string
		keyFile  string

		maxConnections int
	)

	flag.StringVar(&auth, "auth", "", "admin auth code")
	flag.IntVar(&port, "port", 8192, "http service port")
	flag.IntVar(&players, "players", 40, "minimum number of players")
	flag.StringVar(&chatLogPath, "chat-log", "", "path to append chat log records to (empty disables)")
	flag.StringVar(&traceLogPath, "trace-log", "", "path to append client trace records to (empty disables)")
	flag.IntVar(&serverID, "server-id", 1, "stable server id, 1-255")
	flag.BoolVar(&readOnly, "read-only", false, "disable persistence writes through the cloud collaborator")
	flag.IntVar(&commandsRate, "commands-rate", 5, "per-connection inbound command rate limit, per second")
	flag.IntVar(&commandsBurst, "commands-burst", 10, "per-connection inbound command rate limit, burst size")

	flag.StringVar(&publicIP, "public-ip", "", "override auto-detected public ip (cloud mode only)")
	flag.StringVar(&region, "region", "", "cloud region id; empty runs fully offline")
	flag.StringVar(&stage, "stage", "prod", "cloud deployment stage, used to namespace tables/buckets")
	flag.StringVar(&domain, "domain", "", "dns domain managed in route53 for server discovery")
	flag.StringVar(&route53ZoneID, "route53-zone", "", "route53 hosted zone id")
	flag.IntVar(&serverSlots, "server-slots", 16, "number of server slots reserved per region")

	flag.StringVar(&certFile, "tls-cert", "", "path to TLS certificate (empty serves plain http)")
	flag.StringVar(&keyFile, "tls-key", "", "path to TLS private key")

	flag.IntVar(&maxConnections, "max-connections", 4096, "maximum number of inbound TCP connections")

	flag.Parse()

	if players < 0 {
		log.Fatal("invalid argument players: ", players)
	}
	if serverID < 1 || serverID > 255 {
		log.Fatal("invalid argument server-id: ", serverID)
	}

	var cld hub.Cloud
	if region != "" {
		c, err := cloud.New(cloud.Config{
			Region:        region,
			Stage:         stage,
			Domain:        domain,
			Route53ZoneID: route53ZoneID,
			ServerSlots:   serverSlots,
			PublicIP:      publicIP,
		})
		if err != nil {
			log.Fatal("cloud init: ", err)
		}
		cld = c
	}

	h := hub.New(hub.Config{
		MinPlayers:    players,
		Auth:          auth,
		ChatLogPath:   chatLogPath,
		TraceLogPath:  traceLogPath,
		ServerID:      serverID,
		Cloud:         cld,
		ReadOnly:      readOnly,
		CommandsRate:  commandsRate,
		CommandsBurst: commandsBurst,
	})
	go h.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.ServeIndex)
	mux.HandleFunc("/ws", h.ServeSocket)
	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprint(":", port)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("listen: ", err)
	}
	defer l.Close()
	l = netutil.LimitListener(l, maxConnections)

	log.Println("tidewar server started on", addr)

	server := &http.Server{Handler: mux}
	if certFile != "" {
		log.Fatal(server.ServeTLS(l, certFile, keyFile))
	} else {
		log.Fatal(server.Serve(l))
	}
}
