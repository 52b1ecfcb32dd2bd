// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package hub

import (
	"github.com/example/tidewar/internal/world"
)

// Team is an extension of world.Team with extra data
type Team struct {
	world.Team
	Chats []Chat
}

// promoteAbsentCaptains checks every team's owner for death or disconnect
// and, after world.CaptainGraceTicks, hands ownership to the next member.
func (h *Hub) promoteAbsentCaptains() {
	for _, team := range h.teams {
		owner := team.Owner()
		if owner == nil {
			continue
		}

		if owner.EntityID == world.EntityIDInvalid && !h.playerConnected(owner) {
			team.MarkCaptainAbsent(h.currentTick)
		} else {
			team.MarkCaptainPresent()
		}

		team.MaybePromoteCaptain(h.currentTick)
	}
}

// playerConnected reports whether player still has a live Client in the
// Hub's client list (as opposed to having disconnected but not yet been
// fully despawned).
func (h *Hub) playerConnected(player *world.Player) bool {
	for client := h.clients.First; client != nil; client = client.Data().Next {
		if &client.Data().Player.Player == player {
			return true
		}
	}
	return false
}
