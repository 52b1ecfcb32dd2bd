// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package hub

import (
	"encoding/json"
	"fmt"

	"github.com/example/tidewar/internal/metrics"
)

// Cloud flushes statistics, recomputes the leaderboard, and reports this
// server's player count to the persistence/discovery collaborator.
func (h *Hub) Cloud() {
	fmt.Println("Updating cloud")

	if !h.config.ReadOnly {
		if err := h.cloud.FlushStatistics(); err != nil {
			fmt.Println("Error flushing statistics:", err)
		}
	}

	playerCount := 0

	// Cannot use a set to determine number of players, as long as there are
	// duplicate names.
	playerScores := make(map[string]int)

	for client := h.clients.First; client != nil; client = client.Data().Next {
		if _, bot := client.(*BotClient); !bot {
			playerCount++
			player := &client.Data().Player
			if player.Score > playerScores[player.Name] {
				playerScores[player.Name] = player.Score
			}
		}
	}
	metrics.SetPlayerCount(playerCount)
	metrics.SetBotCount(h.clients.Len - playerCount)

	statusJSON, err := json.Marshal(struct {
		Players int `json:"players"`
	}{
		Players: playerCount,
	})

	if err == nil {
		h.statusJSON.Store(statusJSON)
	} else {
		fmt.Println("error marshaling status:", err)
	}

	if h.config.ReadOnly {
		return
	}

	go func() {
		if err := h.cloud.UpdateLeaderboard(playerScores); err != nil {
			fmt.Println("Error updating leaderboard:", err)
		}
	}()

	if err := h.cloud.UpdateServer(playerCount); err != nil {
		fmt.Println("Error updating server:", err)
	}
}
