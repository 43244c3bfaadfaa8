package services

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"

	"sales_sync/internal/models"
	"sales_sync/internal/normalize"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/repository"

	"go.uber.org/zap"
)

const customerIDPrefix = "cust-"

// IdentityService answers "which customer is this" from partial,
// mistyped or re-keyed data. Indices are built lazily from the local
// store and invalidated on any customer write.
type IdentityService struct {
	customers repository.CustomerRepository
	sim       normalize.NameSimilarity
	log       *zap.Logger

	mu           sync.Mutex
	built        bool
	idIndex      map[string]models.Customer
	phoneIndex   map[string][]models.Customer
	addressIndex map[string][]models.Customer
}

func NewIdentityService(customers repository.CustomerRepository, sim normalize.NameSimilarity, events *pubsub.Events, log *zap.Logger) *IdentityService {
	s := &IdentityService{
		customers: customers,
		sim:       sim,
		log:       log,
	}
	// Any customer change invalidates the indices, wherever it came
	// from (local write, delta sync, live subscription).
	events.Customers.Subscribe(func([]models.Customer) { s.Invalidate() })
	return s
}

func (s *IdentityService) Invalidate() {
	s.mu.Lock()
	s.built = false
	s.mu.Unlock()
}

func (s *IdentityService) ensureIndices() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return nil
	}

	all, err := s.customers.GetAll()
	if err != nil {
		return err
	}

	s.idIndex = make(map[string]models.Customer, len(all))
	s.phoneIndex = make(map[string][]models.Customer)
	s.addressIndex = make(map[string][]models.Customer)
	for _, c := range all {
		s.idIndex[c.ID] = c
		if phone := normalize.Phone(c.Phone); len(phone) >= normalize.MinPhoneLen {
			s.phoneIndex[phone] = append(s.phoneIndex[phone], c)
		}
		if addr := normalize.Address(c.Address); addr != "" {
			s.addressIndex[addr] = append(s.addressIndex[addr], c)
		}
	}
	s.built = true
	return nil
}

// Resolve finds the customer a record refers to, in decreasing order of
// confidence: exact id, normalized phone, normalized address. Phone and
// address collisions are disambiguated by name similarity against
// queryName, then by order history. Returns nil when nothing matches;
// the caller should create a new customer.
func (s *IdentityService) Resolve(phone, address, knownID, queryName string) (*models.Customer, error) {
	if err := s.ensureIndices(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if knownID != "" {
		if c, ok := s.idIndex[knownID]; ok {
			return &c, nil
		}
	}

	if p := normalize.Phone(phone); len(p) >= normalize.MinPhoneLen {
		if candidates := s.phoneIndex[p]; len(candidates) > 0 {
			c := s.pick(candidates, queryName)
			return &c, nil
		}
	}

	if a := normalize.Address(address); a != "" {
		if candidates := s.addressIndex[a]; len(candidates) > 0 {
			c := s.pick(candidates, queryName)
			return &c, nil
		}
	}

	return nil, nil
}

// pick disambiguates colliding candidates: among those the similarity
// rule accepts, the highest score wins (order count breaks ties); with
// no similar name at all, the candidate with the most orders wins.
func (s *IdentityService) pick(candidates []models.Customer, queryName string) models.Customer {
	if len(candidates) == 1 {
		return candidates[0]
	}

	best := -1
	bestScore := -1.0
	for i, c := range candidates {
		if queryName == "" || !s.sim.Similar(queryName, c.Name) {
			continue
		}
		score := s.sim.Score(queryName, c.Name)
		if score > bestScore || (score == bestScore && best >= 0 && c.OrderCount > candidates[best].OrderCount) {
			best = i
			bestScore = score
		}
	}
	if best >= 0 {
		return candidates[best]
	}

	best = 0
	for i, c := range candidates {
		if c.OrderCount > candidates[best].OrderCount {
			best = i
		}
	}
	s.log.Debug("ambiguous identity resolved by order history",
		zap.String("name", queryName), zap.String("picked", candidates[best].ID))
	return candidates[best]
}

// DeriveCustomerID builds the stable id for a new customer: the
// normalized phone when it is long enough to be near-unique, otherwise
// a short hash of normalized name+address. Hash collisions are
// tolerated; the dedup tools repair them.
func DeriveCustomerID(name, phone, address string) string {
	if p := normalize.Phone(phone); len(p) >= normalize.MinPhoneLen {
		return p
	}
	sum := sha1.Sum([]byte(normalize.Key(name) + "|" + normalize.Key(address)))
	return customerIDPrefix + hex.EncodeToString(sum[:])[:12]
}

// DeriveSKU builds the stable product id from its display name.
func DeriveSKU(name string) string {
	sum := sha1.Sum([]byte(normalize.Key(name)))
	return "sku-" + hex.EncodeToString(sum[:])[:10]
}
