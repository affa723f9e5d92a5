package models

import (
	"time"
)

type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
)

// Milestone is a cumulative step threshold.
type Milestone struct {
	Value  int    `json:"value"`
	Rarity Rarity `json:"rarity"`
}

// CrossedMilestone is a milestone attributed to the first day the running total reached it.
type CrossedMilestone struct {
	Milestone
	Date string `json:"date"`
}

// UnlockedBadge is the persisted form of an earned badge.
type UnlockedBadge struct {
	ID         int    `json:"id"`
	UnlockDate string `json:"unlockDate"`
}

// BadgeView is a catalog badge joined with its unlock state.
type BadgeView struct {
	ID          int    `json:"id"`
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Unlocked    bool   `json:"unlocked"`
	UnlockDate  string `json:"unlockDate,omitempty"`
}

// MilestoneView is a milestone joined with its crossing and user acknowledgement state.
type MilestoneView struct {
	Milestone
	Crossed   bool   `json:"crossed"`
	Date      string `json:"date,omitempty"`
	Unwrapped bool   `json:"unwrapped"`
	Dismissed bool   `json:"dismissed"`
}

type NotificationKind string

const (
	NotificationBadge     NotificationKind = "badge"
	NotificationMilestone NotificationKind = "milestone"
)

// Notification announces a newly earned badge or milestone.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Icon      string           `json:"icon,omitempty"`
	BadgeID   int              `json:"badgeId,omitempty"`
	Milestone *Milestone       `json:"milestone,omitempty"`
	Date      string           `json:"date"`
	Haptic    bool             `json:"haptic"`
	CreatedAt time.Time        `json:"createdAt"`
}
