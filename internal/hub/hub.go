// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package hub

import (
	"fmt"
	"github.com/example/tidewar/internal/cloud"
	"github.com/example/tidewar/internal/metrics"
	"github.com/example/tidewar/internal/sector"
	"github.com/example/tidewar/internal/terrain"
	"github.com/example/tidewar/internal/terrain/compressed"
	"github.com/example/tidewar/internal/terrain/noise"
	"github.com/example/tidewar/internal/world"
	ratelimit "golang.org/x/time/rate"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	botPeriod         = time.Second / 4
	debugPeriod       = time.Second * 5
	leaderboardPeriod = time.Second
	spawnPeriod       = leaderboardPeriod
	updatePeriod      = world.TickPeriod

	// encodeBotMessages makes BotClient.Send marshal json and check for errors.
	// Only useful for testing/benchmarking (drops performance significantly).
	encodeBotMessages = false
)

// Config is the set of process-level settings read from flags at startup (see
// cmd/tidewar-server/main.go). A zero-value Config runs fully offline: no
// cloud collaborator, no chat/trace logs.
type Config struct {
	MinPlayers    int
	Auth          string
	ChatLogPath   string
	TraceLogPath  string
	ServerID      int // 1-255; stored here, not otherwise read by the hub
	Cloud         Cloud
	ReadOnly      bool // disables persistence writes through Cloud
	CommandsBurst int  // per-connection inbound command rate limit, burst size
	CommandsRate  int  // per-connection inbound command rate limit, per second
}

// Cloud is satisfied by *cloud.AWSCloud and cloud.Offline.
type Cloud = cloud.Cloud

// Hub maintains the set of active clients and broadcasts messages to the clients.
type Hub struct {
	// World state
	world       *sector.World
	worldRadius float32 // interpolated
	terrain     terrain.Terrain
	clients     ClientList // implemented as double-linked list
	despawn     ClientList // clients that are being removed
	teams       map[world.TeamID]*Team

	// Flags
	config Config

	// Cloud (and things that are served atomically by HTTP)
	cloud      Cloud
	statusJSON atomic.Value

	// Per-source-IP connection count, guarded by ipMu (read/written from HTTP
	// handler goroutines, not just the hub goroutine).
	ipMu    sync.RWMutex
	ipConns map[string]int

	// chats are buffered until next update.
	chats []Chat
	// funcBenches are benchmarks of core Hub functions.
	funcBenches []funcBench

	// Inbound channels
	inbound    chan SignedInbound
	register   chan Client
	unregister chan Client

	// Timer based events
	cloudTicker       *time.Ticker
	updateTicker      *time.Ticker
	updateCounter     int
	updateTime        time.Time
	leaderboardTicker *time.Ticker
	debugTicker       *time.Ticker
	botsTicker        *time.Ticker

	// currentTick accumulates world.Ticks elapsed and wraps like world.Ticks
	// itself; used for captain-absence grace periods and similar timers.
	currentTick world.Ticks

	// PlayerID allocation. Humans and bots are allocated from disjoint
	// halves of the id space (see world.PlayerIDBotBit); both counters are
	// monotonic for the lifetime of the hub and are never reused.
	nextPlayerID    world.PlayerID
	nextBotPlayerID world.PlayerID
}

// allocatePlayerID returns the next unused PlayerID for a human or bot.
func (h *Hub) allocatePlayerID(bot bool) world.PlayerID {
	if bot {
		h.nextBotPlayerID++
		return world.PlayerIDBotBit | h.nextBotPlayerID
	}
	h.nextPlayerID++
	return h.nextPlayerID
}

// New builds a Hub from the given process configuration. The caller must
// call Run to start the tick driver.
func New(config Config) *Hub {
	return newHub(config)
}

func newHub(config Config) *Hub {
	c := config.Cloud
	if c == nil {
		c = cloud.Offline{}
	}
	fmt.Println(c)

	minPlayers := config.MinPlayers
	radius := max(world.MinRadius, world.RadiusOf(minPlayers))
	metrics.SetWorldRadius(float64(radius))

	return &Hub{
		cloud:             c,
		config:            config,
		world:             sector.New(radius),
		terrain:           compressed.New(noise.NewDefault()),
		worldRadius:       radius,
		teams:             make(map[world.TeamID]*Team),
		ipConns:           make(map[string]int),
		inbound:           make(chan SignedInbound, 16+minPlayers*2),
		register:          make(chan Client, 8+minPlayers/256),
		unregister:        make(chan Client, 16+minPlayers/128),
		cloudTicker:       time.NewTicker(cloud.UpdatePeriod),
		updateTicker:      time.NewTicker(updatePeriod),
		updateTime:        time.Now(),
		leaderboardTicker: time.NewTicker(leaderboardPeriod),
		debugTicker:       time.NewTicker(debugPeriod),
		botsTicker:        time.NewTicker(botPeriod),
	}
}

// Run starts the tick driver. It never returns; call it in its own
// goroutine.
func (h *Hub) Run() {
	h.run()
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
		println("That's it, I'm out -hub") // Don't waste time debugging hub exists
		os.Exit(1)
	}()

	h.Cloud()

	for {
		select {
		case client := <-h.register:
			h.clients.Add(client)
			data := client.Data()
			data.Hub = h
			_, bot := client.(*BotClient)
			data.Player.SetPlayerID(h.allocatePlayerID(bot))
			client.Init()

			if !bot {
				h.cloud.IncrementPlayerStatistic()
				ratePerSec, burstSize := h.config.CommandsRate, h.config.CommandsBurst
				if ratePerSec <= 0 {
					ratePerSec = 5
				}
				if burstSize <= 0 {
					burstSize = 10
				}
				data.limiter = ratelimit.NewLimiter(ratelimit.Limit(ratePerSec), burstSize)
			}
		case client := <-h.unregister:
			client.Close()
			player := &client.Data().Player.Player

			// Player no longer is joining teams
			// May want to do this during despawn because clearing team requests in O(n).
			h.clearTeamRequests(player)

			// Removes team or transfers ownership, if applicable
			h.leaveTeam(player)

			client.Data().Hub = nil
			h.clients.Remove(client)

			// Remove in Despawn during leaderboard update.
			h.despawn.Add(client)
		case in := <-h.inbound:
			// Read all messages currently in the channel
			n := len(h.inbound)

			for {
				// If not same hub the message is old
				data := in.Client.Data()
				if h == data.Hub {
					if data.limiter == nil || data.limiter.Allow() {
						in.Inbound.Inbound(h, in.Client, &data.Player)
					} else {
						metrics.RecordDroppedFrame("rate_limited")
					}
				}

				if n--; n <= 0 {
					break
				}

				in = <-h.inbound
			}
		case <-h.updateTicker.C:
			now := time.Now()
			timeDelta := now.Sub(h.updateTime) + updatePeriod/10 // Kludge factor
			h.updateTime = now

			// Falling behind skip tick
			if timeDelta%updatePeriod > updatePeriod/5 {
				metrics.RecordTickSkipped()
				break
			}

			ticks := world.Ticks(timeDelta / updatePeriod)
			h.Physics(ticks)
			h.Update()
		case <-h.leaderboardTicker.C:
			h.terrain.Repair()
			h.Despawn()
			h.Spawn()
			h.Leaderboard()

			h.worldRadius = world.Lerp(h.worldRadius, world.RadiusOf(h.clients.Len), 0.25)
			h.world.Resize(h.worldRadius)
		case <-h.debugTicker.C:
			h.Debug()
			h.SnapshotTerrain()
		case <-h.botsTicker.C:
			// Add as many as fit in the channel but don't block because it would deadlock
			for i := h.clients.Len + len(h.register) - len(h.unregister); i < h.config.MinPlayers; i++ {
				select {
				case h.register <- &BotClient{}:
				default:
					break
				}
			}
		case <-h.cloudTicker.C:
			h.Cloud()
		}
	}
}

func (h *Hub) clearTeamRequests(player *world.Player) {
	for _, team := range h.teams {
		team.JoinRequests.Remove(player)
	}
}

// Removes a player from the team that they are on. If the player was the owner,
// transfers or deletes the team depending on if there are remaining members
func (h *Hub) leaveTeam(player *world.Player) {
	if team := h.teams[player.TeamID]; team != nil {
		team.Members.Remove(player)

		// Team is empty, delete it
		if len(team.Members) == 0 {
			delete(h.teams, player.TeamID)
		}
	}

	player.TeamID = world.TeamIDInvalid
}
