package queue

import (
	"context"
	"sync"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
	"github.com/dstern/pledgematch/internal/session"
)

// Direction is a keyboard navigation direction over the filtered list.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Controller owns the filtered queue of payment imports, the current
// selection, and the advancement policy that kicks in after every terminal
// action. It drives the session manager: selecting an item starts a fresh
// reconciliation session for it.
type Controller struct {
	svc        service.Reconciler
	session    *session.Manager
	filter     model.ImportStatus
	imports    []model.PaymentImport
	counts     map[model.ImportStatus]int
	selectedID string
	mu         sync.Mutex
}

// NewController creates a queue controller over the given registry service.
// The initial filter shows New imports, the usual starting point for a
// reconciliation pass.
func NewController(svc service.Reconciler, mgr *session.Manager) *Controller {
	return &Controller{
		svc:     svc,
		session: mgr,
		filter:  model.StatusNew,
		counts:  make(map[model.ImportStatus]int),
	}
}

// Session exposes the workflow manager the controller drives.
func (c *Controller) Session() *session.Manager {
	return c.session
}

// Filter returns the active status filter.
func (c *Controller) Filter() model.ImportStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Imports returns a copy of the current filtered list.
func (c *Controller) Imports() []model.PaymentImport {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.PaymentImport, len(c.imports))
	copy(out, c.imports)
	return out
}

// Counts returns the per-status totals from the last refresh.
func (c *Controller) Counts() map[model.ImportStatus]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.ImportStatus]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// SelectedID returns the id of the currently selected import, or "".
func (c *Controller) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// SelectedIndex returns the selected item's position in the filtered list,
// or -1 when nothing is selected or the item fell out of the filter.
func (c *Controller) SelectedIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOfLocked(c.selectedID)
}

func (c *Controller) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, imp := range c.imports {
		if imp.ID == id {
			return i
		}
	}
	return -1
}

// Refresh reloads the filtered list and the status counts. The two reads are
// independent and run concurrently; both must land before callers evaluate
// the refreshed list.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()

	var (
		wg        sync.WaitGroup
		imports   []model.PaymentImport
		counts    map[model.ImportStatus]int
		listErr   error
		countsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		imports, listErr = c.svc.ListImports(ctx, filter)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = c.svc.GetStatusCounts(ctx)
	}()
	wg.Wait()

	if listErr != nil {
		return common.NewRemoteError("listing imports", listErr)
	}
	if countsErr != nil {
		return common.NewRemoteError("loading status counts", countsErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filter != filter {
		// The filter changed while we were fetching; that change carries
		// its own refresh.
		return nil
	}
	c.imports = imports
	c.counts = counts
	return nil
}

// SetFilter replaces the active status filter, clears the selection, resets
// the session, and reloads. Setting the already-active filter still performs
// the standard reload and reset, nothing more.
func (c *Controller) SetFilter(ctx context.Context, status model.ImportStatus) error {
	c.mu.Lock()
	c.filter = status
	c.selectedID = ""
	c.mu.Unlock()
	c.session.Reset()
	return c.Refresh(ctx)
}

// SelectItem selects the import with the given id and starts a session for
// it. The in-memory copy from the last refresh is preferred; an id outside
// the current list falls back to a remote fetch.
func (c *Controller) SelectItem(ctx context.Context, id string) error {
	c.mu.Lock()
	var imp *model.PaymentImport
	if i := c.indexOfLocked(id); i >= 0 {
		cp := c.imports[i]
		imp = &cp
	}
	c.mu.Unlock()

	if imp == nil {
		fetched, err := c.svc.GetImport(ctx, id)
		if err != nil {
			return common.NewRemoteError("fetching import", err)
		}
		imp = fetched
	}

	c.mu.Lock()
	c.selectedID = imp.ID
	c.mu.Unlock()
	return c.session.Start(ctx, *imp)
}

// AdvanceToNext scans the filtered list strictly after the current item for
// the first import still awaiting reconciliation and selects it. Items before
// the current position are never auto-visited; when the rest of the list is
// exhausted the selection clears and the session resets.
func (c *Controller) AdvanceToNext(ctx context.Context) error {
	c.mu.Lock()
	start := c.indexOfLocked(c.selectedID)
	var nextID string
	for i := start + 1; i < len(c.imports); i++ {
		if c.imports[i].Status.Actionable() {
			nextID = c.imports[i].ID
			break
		}
	}
	if nextID == "" {
		c.selectedID = ""
		c.mu.Unlock()
		c.session.Reset()
		return nil
	}
	c.mu.Unlock()
	return c.SelectItem(ctx, nextID)
}

// MoveRelative selects the next or previous item in the filtered list,
// wrapping at either end. Unlike AdvanceToNext it visits every item
// regardless of status.
func (c *Controller) MoveRelative(ctx context.Context, dir Direction) error {
	c.mu.Lock()
	n := len(c.imports)
	if n == 0 {
		c.mu.Unlock()
		return nil
	}
	idx := c.indexOfLocked(c.selectedID)
	switch dir {
	case Next:
		idx = (idx + 1) % n
	case Previous:
		if idx <= 0 {
			idx = n - 1
		} else {
			idx--
		}
	}
	id := c.imports[idx].ID
	c.mu.Unlock()
	return c.SelectItem(ctx, id)
}

// finish refreshes the list and counts after a successful terminal action
// and advances to the next unprocessed item.
func (c *Controller) finish(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	return c.AdvanceToNext(ctx)
}

// ConfirmHousehold persists the household match and refreshes the list and
// counts so the queue reflects the new status. The import stays selected;
// the wizard moves on to duplicate screening.
func (c *Controller) ConfirmHousehold(ctx context.Context) error {
	if err := c.session.ConfirmHousehold(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// MarkDuplicate resolves the active import as a duplicate and advances.
func (c *Controller) MarkDuplicate(ctx context.Context) error {
	if err := c.session.MarkDuplicate(ctx); err != nil {
		return err
	}
	return c.finish(ctx)
}

// Skip resolves the active import as skipped and advances.
func (c *Controller) Skip(ctx context.Context) error {
	if err := c.session.Skip(ctx); err != nil {
		return err
	}
	return c.finish(ctx)
}

// ApplyToPledge creates a payment against the selected pledge and advances.
func (c *Controller) ApplyToPledge(ctx context.Context) error {
	if err := c.session.ApplyToPledge(ctx); err != nil {
		return err
	}
	return c.finish(ctx)
}

// CreatePledgeAndPayment creates a pledge and payment for the active import
// and advances.
func (c *Controller) CreatePledgeAndPayment(ctx context.Context) error {
	if err := c.session.CreatePledgeAndPayment(ctx); err != nil {
		return err
	}
	return c.finish(ctx)
}
