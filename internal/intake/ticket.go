package intake

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const ticketPrefix = "CYB"

// TicketPattern matches identifiers produced by TicketGenerator.
var TicketPattern = regexp.MustCompile(`^CYB-\d{8}-[0-9A-F]{6}$`)

// TicketGenerator issues CYB-YYYYMMDD-XXXXXX identifiers: the UTC date of
// registration followed by six uppercase hex characters of a random UUID.
// Tickets issued by one generator on the same day never repeat; collisions
// across processes are caught by the complaint store's unique index.
type TicketGenerator struct {
	now    func() time.Time
	random func() string

	mu     sync.Mutex
	day    string
	issued map[string]struct{}
}

// NewTicketGenerator returns a generator using the wall clock.
func NewTicketGenerator() *TicketGenerator {
	return &TicketGenerator{now: time.Now, random: uuid.NewString}
}

// Generate returns a new ticket number. It never blocks on external state.
func (g *TicketGenerator) Generate() string {
	if g == nil {
		return formatTicket(time.Now(), uuid.NewString())
	}
	now, random := g.now, g.random
	if now == nil {
		now = time.Now
	}
	if random == nil {
		random = uuid.NewString
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	ts := now()
	day := ts.UTC().Format("20060102")
	if day != g.day || g.issued == nil {
		g.day = day
		g.issued = make(map[string]struct{})
	}
	for {
		ticket := formatTicket(ts, random())
		if _, seen := g.issued[ticket]; !seen {
			g.issued[ticket] = struct{}{}
			return ticket
		}
	}
}

func formatTicket(ts time.Time, random string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(random, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return ticketPrefix + "-" + ts.UTC().Format("20060102") + "-" + suffix
}

// LooksLikeTicket reports whether a citizen-supplied query is a ticket number.
func LooksLikeTicket(q string) bool {
	return TicketPattern.MatchString(strings.ToUpper(strings.TrimSpace(q)))
}
