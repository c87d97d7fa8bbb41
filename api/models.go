package api

import "strings"

// Payload models for the OpenDota endpoints the UI consumes. Only the
// fields the UI needs are extracted; the rest of each response is
// ignored.

// HeroStat is one entry of /heroStats.
type HeroStat struct {
	ID            int    `json:"id"`
	LocalizedName string `json:"localized_name"`
}

// HeroConstant is one value of /constants/heroes.
type HeroConstant struct {
	ID  int    `json:"id"`
	Img string `json:"img"`
}

// ItemConstant is one value of /constants/items.
type ItemConstant struct {
	ID  int    `json:"id"`
	Img string `json:"img"`
}

// PlayerResponse is the /players/{account_id} payload.
type PlayerResponse struct {
	Profile     *PlayerProfile `json:"profile"`
	MMREstimate *MMREstimate   `json:"mmr_estimate"`
}

// PlayerProfile holds the displayable identity of a player.
type PlayerProfile struct {
	Personaname  string `json:"personaname"`
	SteamID      string `json:"steamid"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`
}

// AvatarURL returns the largest available avatar, or "".
func (p *PlayerProfile) AvatarURL() string {
	if p == nil {
		return ""
	}
	switch {
	case p.AvatarFull != "":
		return p.AvatarFull
	case p.AvatarMedium != "":
		return p.AvatarMedium
	default:
		return p.Avatar
	}
}

// MMREstimate is the estimated matchmaking rating block.
type MMREstimate struct {
	Estimate int `json:"estimate"`
}

// PlayerMatch is one entry of /players/{account_id}/recentMatches.
type PlayerMatch struct {
	MatchID    uint64 `json:"match_id"`
	PlayerSlot int    `json:"player_slot"`
	RadiantWin bool   `json:"radiant_win"`
	Duration   int    `json:"duration"`
	StartTime  int64  `json:"start_time"`
	HeroID     int    `json:"hero_id"`
	GameMode   int    `json:"game_mode"`
	Kills      int    `json:"kills"`
	Deaths     int    `json:"deaths"`
	Assists    int    `json:"assists"`
}

// Won reports whether the player's side won the match. Slots below 128
// are Radiant.
func (m PlayerMatch) Won() bool {
	radiant := m.PlayerSlot < 128
	return radiant == m.RadiantWin
}

// MatchDetail is the /matches/{match_id} payload.
type MatchDetail struct {
	Players []MatchPlayer `json:"players"`
}

// MatchPlayer is one player row of a match detail.
type MatchPlayer struct {
	AccountID   uint32 `json:"account_id"`
	Personaname string `json:"personaname"`
	HeroID      int    `json:"hero_id"`
	PlayerSlot  int    `json:"player_slot"`
	Item0       int    `json:"item_0"`
	Item1       int    `json:"item_1"`
	Item2       int    `json:"item_2"`
	Item3       int    `json:"item_3"`
	Item4       int    `json:"item_4"`
	Item5       int    `json:"item_5"`
	Kills       int    `json:"kills"`
	Deaths      int    `json:"deaths"`
	Assists     int    `json:"assists"`
	GoldPerMin  int    `json:"gold_per_min"`
	XPPerMin    int    `json:"xp_per_min"`
	NetWorth    int    `json:"net_worth"`
}

// AssetURL joins a CDN base with a constant's image path.
func AssetURL(cdnBase, img string) string {
	if img == "" {
		return ""
	}
	if !strings.HasPrefix(img, "/") {
		img = "/" + img
	}
	return strings.TrimRight(cdnBase, "/") + img
}
