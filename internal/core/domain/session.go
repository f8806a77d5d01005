package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// PromoState is the two-phase discount eligibility: claimed (eligible,
// unspent) then used (spent).
type PromoState string

const (
	PromoUnclaimed PromoState = "unclaimed"
	PromoClaimed   PromoState = "claimed"
	PromoUsed      PromoState = "used"
)

type Session struct {
	UserID     string
	Name       string
	Token      string
	IsLoggedIn bool
	Role       Role
	Promo      PromoState
}

func AnonymousSession() Session {
	return Session{
		Role:  RoleCustomer,
		Promo: PromoUnclaimed,
	}
}

func (s Session) IsPromoClaimed() bool {
	return s.Promo == PromoClaimed
}

func (s Session) IsPromoUsed() bool {
	return s.Promo == PromoUsed
}

func (s Session) Authenticated() bool {
	return s.IsLoggedIn && s.Token != ""
}
