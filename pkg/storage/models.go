package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is a principal. Users are never deleted, only disabled.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	GroupID      *int64     `json:"group_id,omitempty"`
	AllowMulti   bool       `json:"allow_multi"`
	LastAccessAt *time.Time `json:"last_access_at,omitempty"`
	LastAccessIP string     `json:"last_access_ip,omitempty"`
	Disabled     bool       `json:"disabled"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Group carries the permission string shared by its members.
type Group struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Note       string    `json:"note"`
	Permission string    `json:"permission"`
	Disabled   bool      `json:"disabled"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Token is an issued access token. Only its digest is stored.
type Token struct {
	ID         int64
	UserID     int64
	Hash       string
	Prefix     string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Item is a stock entry of a chemical.
type Item struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	CASNumber string          `json:"cas_number,omitempty"`
	Formula   string          `json:"formula,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Location  string          `json:"location,omitempty"`
	Hazard    HazardClass     `json:"hazard_class"`
	GroupID   *int64          `json:"group_id,omitempty"`
	Note      string          `json:"note,omitempty"`
	Disabled  bool            `json:"disabled"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HazardClass is the primary hazard of a chemical.
type HazardClass string

const (
	HazardNone          HazardClass = "none"
	HazardFlammable     HazardClass = "flammable"
	HazardOxidizer      HazardClass = "oxidizer"
	HazardCorrosive     HazardClass = "corrosive"
	HazardToxic         HazardClass = "toxic"
	HazardExplosive     HazardClass = "explosive"
	HazardCompressedGas HazardClass = "compressed_gas"
	HazardIrritant      HazardClass = "irritant"
	HazardEnvironmental HazardClass = "environmental"
)

var hazardClasses = map[HazardClass]bool{
	HazardNone: true, HazardFlammable: true, HazardOxidizer: true,
	HazardCorrosive: true, HazardToxic: true, HazardExplosive: true,
	HazardCompressedGas: true, HazardIrritant: true, HazardEnvironmental: true,
}

// ParseHazardClass validates a hazard class name. The empty string is none.
func ParseHazardClass(s string) (HazardClass, error) {
	if s == "" {
		return HazardNone, nil
	}
	h := HazardClass(strings.ToLower(s))
	if !hazardClasses[h] {
		return "", fmt.Errorf("unknown hazard class %q", s)
	}
	return h, nil
}

var casPattern = regexp.MustCompile(`^(\d{2,7})-(\d{2})-(\d)$`)

// ValidateCASNumber checks the format and check digit of a CAS registry
// number such as 7732-18-5.
func ValidateCASNumber(cas string) error {
	m := casPattern.FindStringSubmatch(cas)
	if m == nil {
		return fmt.Errorf("invalid CAS number format %q", cas)
	}

	digits := m[1] + m[2]
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * (i + 1)
	}
	check, _ := strconv.Atoi(m[3])
	if sum%10 != check {
		return fmt.Errorf("invalid CAS number check digit %q", cas)
	}
	return nil
}
