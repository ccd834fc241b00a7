package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

const testOrigin = "http://backend.test"

// --- fakeBackend ---

type fakeBackend struct {
	mu sync.Mutex

	accounts   []domain.ConnectedAccount
	listErr    error
	listCalls  int
	listBlock  chan struct{}
	token      string
	tokenErr   error
	tokenCalls int

	disconnectErr   error
	disconnectCalls []string
	refreshErr      error
	refreshCalls    []string

	// disconnectRemoves drops the provider from accounts on a successful disconnect.
	disconnectRemoves bool
}

func newFakeBackend(accounts ...domain.ConnectedAccount) *fakeBackend {
	return &fakeBackend{accounts: accounts, token: "csrf-token", disconnectRemoves: true}
}

func (b *fakeBackend) Origin() string { return testOrigin }

func (b *fakeBackend) AuthorizationURL(p domain.Provider, returnURL string) string {
	return domain.AuthorizationURL(testOrigin, p, returnURL)
}

func (b *fakeBackend) ListConnectedAccounts(_ context.Context) ([]domain.ConnectedAccount, error) {
	b.mu.Lock()
	block := b.listBlock
	b.mu.Unlock()
	if block != nil {
		<-block
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]domain.ConnectedAccount(nil), b.accounts...), nil
}

func (b *fakeBackend) FetchSecurityToken(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenCalls++
	if b.tokenErr != nil {
		return "", b.tokenErr
	}
	return b.token, nil
}

func (b *fakeBackend) Disconnect(_ context.Context, p domain.Provider, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCalls = append(b.disconnectCalls, string(p)+":"+token)
	if b.disconnectErr != nil {
		return b.disconnectErr
	}
	if b.disconnectRemoves {
		kept := b.accounts[:0]
		for _, a := range b.accounts {
			if cp, _ := a.CanonicalProvider(); cp != p {
				kept = append(kept, a)
			}
		}
		b.accounts = kept
	}
	return nil
}

func (b *fakeBackend) AccountDetails(_ context.Context, p domain.Provider) (*domain.ConnectedAccount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.accounts {
		if cp, _ := b.accounts[i].CanonicalProvider(); cp == p {
			a := b.accounts[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (b *fakeBackend) RefreshProviderTokens(_ context.Context, p domain.Provider, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshCalls = append(b.refreshCalls, string(p)+":"+token)
	return b.refreshErr
}

func (b *fakeBackend) link(p domain.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts = append(b.accounts, domain.ConnectedAccount{Provider: string(p), IsActive: true, ConnectedAt: time.Now()})
}

func (b *fakeBackend) setListErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listErr = err
}

func (b *fakeBackend) mutations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.disconnectCalls) + len(b.refreshCalls)
}

func (b *fakeBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func active(providers ...domain.Provider) []domain.ConnectedAccount {
	accounts := make([]domain.ConnectedAccount, 0, len(providers))
	for _, p := range providers {
		accounts = append(accounts, domain.ConnectedAccount{Provider: string(p), IsActive: true})
	}
	return accounts
}

// --- fakeTab / fakeOpener ---

type fakeTab struct {
	name       string
	url        string
	closed     atomic.Bool
	closeCalls atomic.Int32
}

func (t *fakeTab) Closed() bool { return t.closed.Load() }

func (t *fakeTab) Close() error {
	t.closeCalls.Add(1)
	t.closed.Store(true)
	return nil
}

// userClose simulates the user closing the tab.
func (t *fakeTab) userClose() { t.closed.Store(true) }

type fakeOpener struct {
	mu      sync.Mutex
	tabs    []*fakeTab
	openErr error
	// onOpen runs synchronously inside Open, before it returns.
	onOpen func(tab *fakeTab)
}

func (o *fakeOpener) Open(ctx context.Context, rawURL, windowName string) (driven.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	if o.openErr != nil {
		o.mu.Unlock()
		return nil, o.openErr
	}
	tab := &fakeTab{name: windowName, url: rawURL}
	o.tabs = append(o.tabs, tab)
	hook := o.onOpen
	o.mu.Unlock()

	if hook != nil {
		hook(tab)
	}
	return tab, nil
}

func (o *fakeOpener) opened() []*fakeTab {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeTab(nil), o.tabs...)
}

// waitForTab returns the n-th opened tab (0-based), waiting up to a second.
func (o *fakeOpener) waitForTab(n int) *fakeTab {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if tabs := o.opened(); len(tabs) > n {
			return tabs[n]
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

// --- fakeBus ---

type subscription struct {
	predicate driven.MessagePredicate
	handler   driven.MessageHandler
}

type fakeBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[int]subscription)}
}

func (b *fakeBus) Subscribe(predicate driven.MessagePredicate, handler driven.MessageHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{predicate: predicate, handler: handler}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// post delivers a message synchronously to every matching subscriber.
func (b *fakeBus) post(window, origin, data string) {
	msg := domain.WindowMessage{Window: window, Origin: origin, Data: []byte(data), ReceivedAt: time.Now()}

	b.mu.Lock()
	subs := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if s.predicate == nil || s.predicate(msg) {
			s.handler(msg)
		}
	}
}

func (b *fakeBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// --- fakeLocation ---

type fakeLocation struct {
	mu        sync.Mutex
	href      string
	redirects uint64
}

func newFakeLocation() *fakeLocation {
	return &fakeLocation{href: "http://127.0.0.1:8765/?tab=accounts"}
}

func (l *fakeLocation) Href() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.href
}

func (l *fakeLocation) Redirects() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.redirects
}

// navigate simulates an authorization return landing on the page.
func (l *fakeLocation) navigate(href string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.href = href
	l.redirects++
}

// restore puts href back without counting a redirect.
func (l *fakeLocation) restore(href string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.href = href
}

// --- fakeJournal ---

type fakeJournal struct {
	mu        sync.Mutex
	results   []domain.FlowResult
	recordErr error
	lastKeep  int
}

func (j *fakeJournal) Record(_ context.Context, result *domain.FlowResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.recordErr != nil {
		return j.recordErr
	}
	j.results = append(j.results, *result)
	return nil
}

func (j *fakeJournal) List(_ context.Context, limit int) ([]domain.FlowResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.FlowResult, 0, len(j.results))
	for i := len(j.results) - 1; i >= 0; i-- {
		out = append(out, j.results[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (j *fakeJournal) Prune(_ context.Context, keep int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastKeep = keep
	return nil
}

func (j *fakeJournal) recorded() []domain.FlowResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.FlowResult(nil), j.results...)
}

var (
	_ driven.LinkBackend = (*fakeBackend)(nil)
	_ driven.TabOpener   = (*fakeOpener)(nil)
	_ driven.MessageBus  = (*fakeBus)(nil)
	_ driven.Location    = (*fakeLocation)(nil)
	_ driven.FlowJournal = (*fakeJournal)(nil)
)
