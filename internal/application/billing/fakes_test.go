package billing

import (
	"context"
	"sync"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/internal/domain/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain/entity"
	"github.com/tu-usuario/facturacion-api/internal/domain/repository"
)

// ── Lock y espejo de contador en memoria ─────────────────────────────────────

type fakeUnlocker struct {
	release func()
}

func (u *fakeUnlocker) Release(context.Context) error {
	if u.release != nil {
		u.release()
	}
	return nil
}

type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	fails int // Acquire devuelve ErrLockConflict las primeras n veces
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (Unlocker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fails > 0 {
		l.fails--
		return nil, domain.ErrLockConflict
	}
	if l.held[key] {
		return nil, domain.ErrLockConflict
	}
	l.held[key] = true
	return &fakeUnlocker{release: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}}, nil
}

type fakeCounterCache struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newFakeCounterCache() *fakeCounterCache {
	return &fakeCounterCache{values: make(map[string]int64)}
}

func (c *fakeCounterCache) ResyncAndIncrement(_ context.Context, key string, durable int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	current, ok := c.values[key]
	if !ok || current != durable {
		current = durable
	}
	current++
	c.values[key] = current
	return current, nil
}

// drop simula la evicción del espejo.
func (c *fakeCounterCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// poison desincroniza el espejo a un valor arbitrario.
func (c *fakeCounterCache) poison(key string, v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
}

// ── Repositorios en memoria ──────────────────────────────────────────────────

type fakeSeriesRepo struct {
	mu     sync.Mutex
	byKey  map[string]*entity.Series
	upErr  error
	ups    int // contador de UpdateLastNumber
}

func newFakeSeriesRepo(series ...*entity.Series) *fakeSeriesRepo {
	r := &fakeSeriesRepo{byKey: make(map[string]*entity.Series)}
	for _, s := range series {
		r.byKey[s.CounterKey()] = s
	}
	return r
}

func (r *fakeSeriesRepo) Create(_ context.Context, s *entity.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[s.CounterKey()] = s
	return nil
}

func (r *fakeSeriesRepo) GetByPOSAndCode(_ context.Context, posID, code string) (*entity.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byKey[posID+":"+code]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSeriesRepo) UpdateLastNumber(_ context.Context, id string, lastNumber int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upErr != nil {
		return r.upErr
	}
	for _, s := range r.byKey {
		if s.ID == id {
			s.LastNumber = lastNumber
			r.ups++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeSeriesRepo) ListByPOS(_ context.Context, posID string) ([]*entity.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Series
	for _, s := range r.byKey {
		if s.PointOfSaleID == posID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeDocRepo struct {
	mu      sync.Mutex
	byID    map[string]*entity.Document
	details map[string][]*entity.DocumentDetail
	updates int
}

func newFakeDocRepo(docs ...*entity.Document) *fakeDocRepo {
	r := &fakeDocRepo{
		byID:    make(map[string]*entity.Document),
		details: make(map[string][]*entity.DocumentDetail),
	}
	for _, d := range docs {
		r.byID[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if d.PointOfSaleID == doc.PointOfSaleID && d.Type == doc.Type &&
			d.Series == doc.Series && d.Correlativo == doc.Correlativo {
			return domain.ErrDuplicate
		}
	}
	cp := *doc
	r.byID[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) CreateDetail(_ context.Context, detail *entity.DocumentDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *detail
	r.details[detail.DocumentID] = append(r.details[detail.DocumentID], &cp)
	return nil
}

func (r *fakeDocRepo) Update(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.byID[doc.ID] = &cp
	r.updates++
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocRepo) GetByNumber(_ context.Context, posID, docType, series, correlativo string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if d.PointOfSaleID == posID && d.Type == docType && d.Series == series && d.Correlativo == correlativo {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDocRepo) GetDetails(_ context.Context, documentID string) ([]*entity.DocumentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.details[documentID], nil
}

func (r *fakeDocRepo) ListByStates(_ context.Context, establishmentID string, states []billing.OperationState, before time.Time) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.byID {
		if d.EstablishmentID != establishmentID || !d.CreatedAt.Before(before) {
			continue
		}
		for _, s := range states {
			if d.OperationState == s {
				cp := *d
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeDocRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.byID {
		if d.CompanyID == companyID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeCompanyRepo struct{ c *entity.Company }

func (r *fakeCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	if r.c != nil && r.c.ID == id {
		cp := *r.c
		return &cp, nil
	}
	return nil, nil
}

type fakeEstRepo struct{ e *entity.Establishment }

func (r *fakeEstRepo) GetByID(_ context.Context, id string) (*entity.Establishment, error) {
	if r.e != nil && r.e.ID == id {
		cp := *r.e
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeEstRepo) ListBySendMode(_ context.Context, mode string) ([]*entity.Establishment, error) {
	if r.e != nil && r.e.SendMode == mode && r.e.Active {
		cp := *r.e
		return []*entity.Establishment{&cp}, nil
	}
	return nil, nil
}

type fakePOSRepo struct{ p *entity.PointOfSale }

func (r *fakePOSRepo) GetByID(_ context.Context, id string) (*entity.PointOfSale, error) {
	if r.p != nil && r.p.ID == id {
		cp := *r.p
		return &cp, nil
	}
	return nil, nil
}

type fakeCustomerRepo struct {
	mu   sync.Mutex
	list []*entity.Customer
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.list {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) GetByTaxID(_ context.Context, companyID, taxID string) (*entity.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.list {
		if c.CompanyID == companyID && c.TaxID == taxID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.list = append(r.list, &cp)
	return nil
}

// fakeTxRunner ejecuta el callback directamente contra los repos en memoria.
type fakeTxRunner struct {
	docRepo      *fakeDocRepo
	customerRepo *fakeCustomerRepo
}

func (t *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	customerRepo repository.CustomerRepository,
) error) error {
	return fn(t.docRepo, t.customerRepo)
}

// ── Colaboradores externos ───────────────────────────────────────────────────

type fakeStore struct {
	mu       sync.Mutex
	unsigned map[string][]byte
	signed   map[string][]byte
	cdr      map[string][]byte
	printed  map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		unsigned: make(map[string][]byte),
		signed:   make(map[string][]byte),
		cdr:      make(map[string][]byte),
		printed:  make(map[string][]byte),
	}
}

func (s *fakeStore) SaveUnsigned(_ context.Context, ref ArtifactRef, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsigned[ref.FileName] = data
	return nil
}

func (s *fakeStore) SaveSigned(_ context.Context, ref ArtifactRef, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signed[ref.FileName] = data
	return nil
}

func (s *fakeStore) SaveCDR(_ context.Context, ref ArtifactRef, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cdr[ref.FileName] = data
	return nil
}

func (s *fakeStore) SavePrinted(_ context.Context, ref ArtifactRef, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printed[ref.FileName] = data
	return nil
}

func (s *fakeStore) HasUnsigned(_ context.Context, ref ArtifactRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unsigned[ref.FileName]
	return ok
}

func (s *fakeStore) HasSigned(_ context.Context, ref ArtifactRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.signed[ref.FileName]
	return ok
}

func (s *fakeStore) HasCDR(_ context.Context, ref ArtifactRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cdr[ref.FileName]
	return ok
}

func (s *fakeStore) LoadSigned(_ context.Context, ref ArtifactRef) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.signed[ref.FileName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *fakeStore) LoadCDR(_ context.Context, ref ArtifactRef) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.cdr[ref.FileName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	outcome *Outcome
	err     error
}

func (g *fakeGateway) Submit(context.Context, Credentials, string, []byte) (*Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.outcome, nil
}

type fakeParser struct {
	verdict *Verdict
	err     error
}

func (p *fakeParser) Parse([]byte) (*Verdict, error) {
	return p.verdict, p.err
}

type fakeSigner struct {
	unsigned []byte
	signed   []byte
	err      error
}

func (s *fakeSigner) GenerateAndSign(context.Context, *entity.Document, []*entity.DocumentDetail, *entity.Company) ([]byte, []byte, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.unsigned, s.signed, nil
}

type fakeRenderer struct{ err error }

func (r *fakeRenderer) Render(context.Context, *entity.Document, []*entity.DocumentDetail, *entity.Company) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF"), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
	rooms  []string
}

func (n *fakeNotifier) Publish(_ context.Context, room string, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, room)
	n.events = append(n.events, event)
}

func (n *fakeNotifier) byType(t string) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []SubmissionJob
}

func (q *fakeEnqueuer) Enqueue(_ context.Context, job SubmissionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}
