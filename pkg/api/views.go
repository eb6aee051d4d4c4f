package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// UserView is the public representation of a principal
type UserView struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Group        string     `json:"group,omitempty"`
	AllowMulti   bool       `json:"allowMulti"`
	LastAccessAt *time.Time `json:"lastAccessAt,omitempty"`
	LastAccessIP string     `json:"lastAccessIp,omitempty"`
	Disabled     bool       `json:"disabled"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// GroupView is the public representation of a group
type GroupView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Note       string    `json:"note"`
	Permission string    `json:"permission"`
	Disabled   bool      `json:"disabled"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ItemView is the public representation of a chemical item
type ItemView struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	CASNumber string          `json:"casNumber,omitempty"`
	Formula   string          `json:"formula,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Location  string          `json:"location,omitempty"`
	Hazard    string          `json:"hazardClass"`
	Group     string          `json:"group,omitempty"`
	Note      string          `json:"note,omitempty"`
	Disabled  bool            `json:"disabled"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AuditView is the public representation of an audit record
type AuditView struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Actor     *int64    `json:"actor,omitempty"`
	Table     string    `json:"table"`
	Row       int64     `json:"row"`
	Field     string    `json:"field"`
	Note      string    `json:"note,omitempty"`
	From      *string   `json:"from,omitempty"`
	To        *string   `json:"to,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func groupView(g *storage.Group) GroupView {
	return GroupView{
		ID:         g.ID,
		Name:       g.Name,
		Note:       g.Note,
		Permission: g.Permission,
		Disabled:   g.Disabled,
		UpdatedAt:  g.UpdatedAt,
	}
}

func auditView(r *audit.Record) AuditView {
	return AuditView{
		ID:        r.ID,
		Level:     string(r.Level),
		Actor:     r.ActorID,
		Table:     r.Table,
		Row:       r.RowID,
		Field:     r.Field,
		Note:      r.Note,
		From:      r.OldValue,
		To:        r.NewValue,
		CreatedAt: r.CreatedAt,
	}
}

// groupNames resolves group ids to names for one request
type groupNames struct {
	s     *Server
	rq    *Request
	names map[int64]string
}

func (s *Server) groupNames(rq *Request) *groupNames {
	return &groupNames{s: s, rq: rq, names: make(map[int64]string)}
}

func (gn *groupNames) lookup(id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	if name, ok := gn.names[*id]; ok {
		return name, nil
	}
	g, err := gn.s.groups.GetGroupByID(gn.rq.Context(), gn.rq.Tx, *id)
	if err != nil {
		return "", err
	}
	gn.names[*id] = g.Name
	return g.Name, nil
}

func (gn *groupNames) user(u *storage.User) (UserView, error) {
	group, err := gn.lookup(u.GroupID)
	if err != nil {
		return UserView{}, err
	}
	return UserView{
		ID:           u.ID,
		Name:         u.Name,
		Group:        group,
		AllowMulti:   u.AllowMulti,
		LastAccessAt: u.LastAccessAt,
		LastAccessIP: u.LastAccessIP,
		Disabled:     u.Disabled,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

func (gn *groupNames) item(it *storage.Item) (ItemView, error) {
	group, err := gn.lookup(it.GroupID)
	if err != nil {
		return ItemView{}, err
	}
	return ItemView{
		ID:        it.ID,
		Name:      it.Name,
		CASNumber: it.CASNumber,
		Formula:   it.Formula,
		Quantity:  it.Quantity,
		Unit:      it.Unit,
		Location:  it.Location,
		Hazard:    string(it.Hazard),
		Group:     group,
		Note:      it.Note,
		Disabled:  it.Disabled,
		UpdatedAt: it.UpdatedAt,
	}, nil
}

// groupRef resolves a group name given in a request body. The empty name
// clears the reference. Unknown and disabled groups are not found.
func (s *Server) groupRef(rq *Request, name string) (*storage.Group, error) {
	if name == "" {
		return nil, nil
	}
	g, err := s.groups.GetGroupByName(rq.Context(), rq.Tx, name)
	if err != nil {
		return nil, err
	}
	if g.Disabled {
		return nil, storage.ErrNotFound
	}
	return g, nil
}

func groupID(g *storage.Group) *int64 {
	if g == nil {
		return nil
	}
	id := g.ID
	return &id
}

func groupName(g *storage.Group) string {
	if g == nil {
		return ""
	}
	return g.Name
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
