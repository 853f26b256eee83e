package interest

import "estatehub/internal/models"

// UnlockCost is the number of credits an agent spends to reveal a seeker.
const UnlockCost = 5

const (
	referencePrefix  = "UNL"
	maxMessageLength = 1000
)

// Results reported to metrics.
const (
	ResultUnlocked     = "unlocked"
	ResultInsufficient = "insufficient_credits"
	ResultAlreadyDone  = "already_unlocked"
	ResultNotOwner     = "not_owner"
	ResultNotFound     = "not_found"
	ResultError        = "error"

	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
)

// Contact is the seeker data an agent pays to see.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// View is an interest as returned to a caller. Contact stays nil for agents
// until the interest is unlocked.
type View struct {
	models.Interest
	Contact *Contact `json:"contact,omitempty"`
	Masked  bool     `json:"masked"`
}

type UnlockResult struct {
	Interest         View `json:"interest"`
	CreditsSpent     int  `json:"credits_spent"`
	CreditsRemaining int  `json:"credits_remaining"`
}

func agentView(in models.Interest) View {
	v := View{Interest: in, Masked: !in.Unlocked}
	if in.Unlocked && in.Seeker != nil {
		v.Contact = &Contact{Name: in.Seeker.Name, Email: in.Seeker.Email, Phone: in.Seeker.Phone}
	}
	v.Interest.Seeker = nil
	return v
}

func seekerView(in models.Interest) View {
	in.Seeker = nil
	return View{Interest: in}
}
