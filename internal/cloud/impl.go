// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json" // oof
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/example/tidewar/internal/cloud/db"
	"github.com/example/tidewar/internal/cloud/dns"
	"github.com/example/tidewar/internal/cloud/fs"
)

const UpdatePeriod = 30 * time.Second

// Config is supplied by the flag-based process configuration (see
// cmd/tidewar-server/main.go) instead of being auto-discovered from EC2 instance metadata,
// so the server core never depends on running inside AWS to start up.
type Config struct {
	Region        string
	Stage         string
	Domain        string
	Route53ZoneID string
	ServerSlots   int
	PublicIP      string // optional override; empty means auto-detect
}

// AWSCloud is the DynamoDB/S3/Route53-backed implementation of Cloud.
type AWSCloud struct {
	region     string
	serverSlot int
	ip         net.IP
	database   db.Database
	dns        dns.DNS
	fs         fs.Filesystem

	playerStat    int64
	newPlayerStat int64
	playsStat     int64
}

var _ Cloud = (*AWSCloud)(nil)

func (cloud *AWSCloud) String() string {
	var builder strings.Builder
	builder.WriteByte('[')
	if cloud == nil {
		builder.WriteString("offline")
	} else {
		builder.WriteString(cloud.region)
		builder.WriteByte(' ')
		builder.WriteString(strconv.Itoa(cloud.serverSlot))
		builder.WriteByte(' ')
		builder.WriteString(cloud.ip.String())
	}
	builder.WriteByte(']')
	return builder.String()
}

// New connects to AWS and claims a server slot for this process. Returns an
// error if no slot is free or any collaborator fails to initialize.
func New(cfg Config) (*AWSCloud, error) {
	cloud := &AWSCloud{region: cfg.Region}

	var err error
	if cfg.PublicIP != "" {
		cloud.ip = net.ParseIP(cfg.PublicIP)
		if cloud.ip == nil {
			return nil, errors.New("invalid public ip override: " + cfg.PublicIP)
		}
	} else {
		cloud.ip, err = getPublicIP()
		if err != nil {
			return nil, err
		}
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, err
	}

	cloud.database, err = db.NewDynamoDBDatabase(sess, cfg.Stage)
	if err != nil {
		return nil, err
	}
	cloud.dns, err = dns.NewRoute53DNS(sess, cfg.Domain, cfg.Route53ZoneID)
	if err != nil {
		return nil, err
	}
	cloud.fs, err = fs.NewS3Filesystem(sess, cfg.Stage)
	if err != nil {
		return nil, err
	}

	servers, err := cloud.database.ReadServersByRegion(cloud.region)
	if err != nil {
		return nil, err
	}

	cloud.serverSlot = -1

	// Reclaim old slot if applicable.
	for _, server := range servers {
		if cloud.ip.Equal(server.IP) {
			cloud.serverSlot = server.Slot
			break
		}
	}

	// Otherwise allocate a slot.
	if cloud.serverSlot == -1 {
	scan:
		for slot := 0; slot < cfg.ServerSlots; slot++ {
			for _, server := range servers {
				if server.Slot == slot {
					continue scan // slot is taken
				}
			}
			cloud.serverSlot = slot
			break
		}
	}

	if cloud.serverSlot == -1 {
		return nil, errors.New("no empty server slot")
	}

	if err := cloud.dns.UpdateRoute(cloud.region, cloud.serverSlot, cloud.ip); err != nil {
		return nil, err
	}

	if err := cloud.UpdateServer(0); err != nil {
		return nil, err
	}

	return cloud, nil
}

// Call at least every UpdatePeriod.
func (cloud *AWSCloud) UpdateServer(players int) error {
	if cloud == nil {
		return nil
	}
	return cloud.database.UpdateServer(db.Server{
		Region:  cloud.region,
		Slot:    cloud.serverSlot,
		IP:      cloud.ip,
		Players: players,
		TTL:     time.Now().Unix() + int64(UpdatePeriod/time.Second) + 5,
	})
}

func (cloud *AWSCloud) IncrementPlayerStatistic() {
	if cloud != nil {
		atomic.AddInt64(&cloud.playerStat, 1)
	}
}

func (cloud *AWSCloud) IncrementNewPlayerStatistic() {
	if cloud != nil {
		atomic.AddInt64(&cloud.newPlayerStat, 1)
	}
}

func (cloud *AWSCloud) IncrementPlaysStatistic() {
	if cloud != nil {
		atomic.AddInt64(&cloud.playsStat, 1)
	}
}

// FlushStatistics resets the player, new-player and plays counters to zero.
// Their values are discarded; nothing is written to the database.
func (cloud *AWSCloud) FlushStatistics() error {
	if cloud == nil {
		return nil
	}
	atomic.StoreInt64(&cloud.playerStat, 0)
	atomic.StoreInt64(&cloud.newPlayerStat, 0)
	atomic.StoreInt64(&cloud.playsStat, 0)
	return nil
}

func (cloud *AWSCloud) UpdatePeriod() time.Duration {
	return UpdatePeriod
}

func (cloud *AWSCloud) UpdateLeaderboard(playerScores map[string]int) (err error) {
	if cloud == nil {
		return nil
	}

	dbScores, err := cloud.database.ReadScores()
	if err != nil {
		return
	}

	type leaderboardScore struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	leaderboard := make(map[string][]leaderboardScore)

	// Minimum points to affect leaderboard (to avoid inserting too many low scores).
	thresholds := make(map[string]int)

	for _, dbScore := range dbScores {
		leaderboard[dbScore.Type] = append(leaderboard[dbScore.Type], leaderboardScore{
			Name:  dbScore.Name,
			Score: dbScore.Score,
		})
	}

	for scoreType, scores := range leaderboard {
		sort.Slice(scores, func(i, j int) bool {
			return scores[i].Score > scores[j].Score
		})

		// Leave 5 scores extra in case some expire/are moderated out.
		const thresholdIndex = 15
		if len(scores) > thresholdIndex {
			thresholds[scoreType] = scores[thresholdIndex].Score
		}

		const max = 10
		if len(scores) > max {
			leaderboard[scoreType] = scores[:max]
		}
	}

	now := time.Now().Unix()
	day := int64(60 * 60 * 24)
	ttlDay := now + day
	ttlWeek := now + day*7

	for name, score := range playerScores {
		if score > thresholds["single/all"] {
			if err = cloud.database.UpdateScore(db.Score{Type: "single/all", Name: name, Score: score}); err != nil {
				return
			}
		}
		if score > thresholds["single/week"] {
			if err = cloud.database.UpdateScore(db.Score{Type: "single/week", Name: name, Score: score, TTL: ttlWeek}); err != nil {
				return
			}
		}
		if score > thresholds["single/day"] {
			if err = cloud.database.UpdateScore(db.Score{Type: "single/day", Name: name, Score: score, TTL: ttlDay}); err != nil {
				return
			}
		}
	}

	leaderboardJSON, err := json.Marshal(leaderboard)
	if err == nil {
		_ = cloud.fs.UploadStaticFile("leaderboard.json", 10, leaderboardJSON)
	}
	return
}

func (cloud *AWSCloud) UploadTerrainSnapshot(data []byte) error {
	if cloud == nil {
		return nil
	}
	return cloud.fs.UploadStaticFile("terrain.png", 60, data)
}

func getPublicIP() (net.IP, error) {
	resp, err := http.Get("https://checkip.amazonaws.com")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return nil, err
	}

	ip := net.ParseIP(strings.TrimSpace(string(body)))
	if ip == nil {
		return nil, errors.New("could not parse public ip response")
	}
	return ip, nil
}
