package service_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/storage"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
	err      error
	calls    int
}

var _ storage.ProfileStorage = (*fakeProfileRepo)(nil)

func newFakeProfileRepo(profiles ...*models.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{profiles: make(map[int64]*models.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfileRepo) GetProfileByID(ctx context.Context, id int64) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, storage.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, storage.ErrProfileNotFound
}

func (f *fakeProfileRepo) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.ID = int64(len(f.profiles) + 1)
	profile.CreatedAt = time.Now()
	f.profiles[profile.ID] = profile
	return profile, nil
}

func (f *fakeProfileRepo) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return storage.ErrProfileNotFound
	}
	p.PassHash = passHash
	return nil
}

func (f *fakeProfileRepo) SetActive(ctx context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return storage.ErrProfileNotFound
	}
	p.Active = active
	return nil
}

func (f *fakeProfileRepo) ListProfiles(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Profile
	for _, p := range f.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeVendorRepo struct {
	mu      sync.Mutex
	vendors map[int64]*models.Vendor
	err     error
}

var _ storage.VendorStorage = (*fakeVendorRepo)(nil)

func newFakeVendorRepo(vendors ...*models.Vendor) *fakeVendorRepo {
	f := &fakeVendorRepo{vendors: make(map[int64]*models.Vendor)}
	for _, v := range vendors {
		f.vendors[v.ID] = v
	}
	return f
}

func (f *fakeVendorRepo) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vendors[id]
	if !ok {
		return nil, storage.ErrVendorNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVendorRepo) GetVendorByProfileID(ctx context.Context, profileID int64) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, v := range f.vendors {
		if v.ProfileID == profileID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, storage.ErrVendorNotFound
}

func (f *fakeVendorRepo) CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vendor.ID = int64(len(f.vendors) + 1)
	vendor.CreatedAt = time.Now()
	f.vendors[vendor.ID] = vendor
	return vendor, nil
}

func (f *fakeVendorRepo) ListVendors(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vendor
	for _, v := range f.vendors {
		if status == "" || v.Status == status {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVendorRepo) UpdateVendorStatus(ctx context.Context, id int64, from, status models.VendorStatus, actorID int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vendors[id]
	if !ok {
		return storage.ErrVendorNotFound
	}
	if f.err != nil {
		return f.err
	}
	if v.Status != from {
		return storage.ErrStatusConflict
	}
	v.Status = status
	v.RejectionReason = reason
	if status == models.VendorApproved {
		now := time.Now()
		v.ApprovedBy = &actorID
		v.ApprovedAt = &now
	}
	return nil
}

func (f *fakeVendorRepo) CountVendorsByStatus(ctx context.Context) (map[models.VendorStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.VendorStatus]int{}
	for _, v := range f.vendors {
		out[v.Status]++
	}
	return out, nil
}

func (f *fakeVendorRepo) LockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error) {
	return f.GetVendorByID(ctx, id)
}

func (f *fakeVendorRepo) ShareLockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error) {
	return f.GetVendorByID(ctx, id)
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	nextID   int64
	// approvedVendors продавцы, чьи товары видны при ApprovedVendorsOnly
	approvedVendors map[int64]bool
	// staleStatus имитирует смену статуса другим запросом до записи
	staleStatus bool
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[int64]*models.Product), approvedVendors: make(map[int64]bool)}
	for _, p := range products {
		f.products[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.products[p.ID]
	if !ok || cur.VendorID != p.VendorID {
		return storage.ErrProductNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id, vendorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.products[id]
	if !ok || cur.VendorID != vendorID {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Product
	for _, p := range f.products {
		if filter.VendorID != nil && p.VendorID != *filter.VendorID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ApprovedVendorsOnly && !f.approvedVendors[p.VendorID] {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProductRepo) UpdateProductStatus(ctx context.Context, id int64, from, status models.ProductStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if f.staleStatus || p.Status != from {
		return storage.ErrStatusConflict
	}
	p.Status = status
	p.RejectionReason = reason
	return nil
}

func (f *fakeProductRepo) CountProductsByStatus(ctx context.Context, vendorID *int64) (map[models.ProductStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.ProductStatus]int{}
	for _, p := range f.products {
		if vendorID != nil && p.VendorID != *vendorID {
			continue
		}
		out[p.Status]++
	}
	return out, nil
}

func (f *fakeProductRepo) LockProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductRepo) AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if p.StockQuantity+delta < 0 {
		return storage.ErrInsufficientStock
	}
	p.StockQuantity += delta
	return nil
}

type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   map[int64]*models.Order
	earnings map[int64]int64
	daily    []models.DailyRevenue
	sinceArg time.Time
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	f := &fakeOrderRepo{orders: make(map[int64]*models.Order), earnings: make(map[int64]int64)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = int64(len(f.orders) + 1)
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return f.GetOrderByID(ctx, id)
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if vendorID != nil && o.VendorID != *vendorID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (f *fakeOrderRepo) CountOrdersByStatus(ctx context.Context, vendorID *int64) (map[models.OrderStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.OrderStatus]int{}
	for _, o := range f.orders {
		if vendorID != nil && o.VendorID != *vendorID {
			continue
		}
		out[o.Status]++
	}
	return out, nil
}

func (f *fakeOrderRepo) SumRevenue(ctx context.Context, vendorID *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, o := range f.orders {
		if vendorID != nil && o.VendorID != *vendorID {
			continue
		}
		if o.PaymentStatus == models.PaymentPaid && o.Status != models.OrderCancelled {
			sum += o.Total
		}
	}
	return sum, nil
}

func (f *fakeOrderRepo) SumEarningsTx(ctx context.Context, tx *sql.Tx, vendorID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.earnings[vendorID], nil
}

func (f *fakeOrderRepo) DailyRevenue(ctx context.Context, vendorID *int64, since time.Time) ([]models.DailyRevenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceArg = since
	return f.daily, nil
}

type fakePayoutRepo struct {
	mu      sync.Mutex
	payouts map[int64]*models.Payout
	// concurrent переводит выплату в указанный статус перед записью
	concurrent models.PayoutStatus
}

var _ storage.PayoutStorage = (*fakePayoutRepo)(nil)

func newFakePayoutRepo(payouts ...*models.Payout) *fakePayoutRepo {
	f := &fakePayoutRepo{payouts: make(map[int64]*models.Payout)}
	for _, p := range payouts {
		f.payouts[p.ID] = p
	}
	return f
}

func (f *fakePayoutRepo) CreatePayoutTx(ctx context.Context, tx *sql.Tx, p *models.Payout) (*models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = int64(len(f.payouts) + 1)
	f.payouts[p.ID] = p
	return p, nil
}

func (f *fakePayoutRepo) GetPayoutByID(ctx context.Context, id int64) (*models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[id]
	if !ok {
		return nil, storage.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayoutRepo) ListPayouts(ctx context.Context, vendorID *int64, status models.PayoutStatus) ([]*models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Payout
	for _, p := range f.payouts {
		if vendorID != nil && p.VendorID != *vendorID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePayoutRepo) UpdatePayoutStatus(ctx context.Context, id int64, from, status models.PayoutStatus, processedBy int64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[id]
	if !ok {
		return storage.ErrPayoutNotFound
	}
	if f.concurrent != "" {
		p.Status = f.concurrent
	}
	if p.Status != from {
		return storage.ErrStatusConflict
	}
	p.Status = status
	p.ProcessedBy = &processedBy
	if notes != "" {
		p.Notes = notes
	}
	return nil
}

func (f *fakePayoutRepo) SumPayoutsTx(ctx context.Context, tx *sql.Tx, vendorID int64, statuses ...models.PayoutStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, p := range f.payouts {
		if p.VendorID != vendorID {
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				sum += p.Amount
			}
		}
	}
	return sum, nil
}

func (f *fakePayoutRepo) SumAllByStatus(ctx context.Context, status models.PayoutStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, p := range f.payouts {
		if p.Status == status {
			sum += p.Amount
		}
	}
	return sum, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
}

var _ storage.MessageStorage = (*fakeMessageRepo)(nil)

func (f *fakeMessageRepo) CreateMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.messages) + 1)
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeMessageRepo) ListConversation(ctx context.Context, a, b int64) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, m := range f.messages {
		if m.ReceiverID == nil {
			continue
		}
		if (m.SenderID == a && *m.ReceiverID == b) || (m.SenderID == b && *m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListInbox(ctx context.Context, profileID int64) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, m := range f.messages {
		if m.Announcement || (m.ReceiverID != nil && *m.ReceiverID == profileID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id, receiverID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id && m.ReceiverID != nil && *m.ReceiverID == receiverID {
			m.Read = true
			return nil
		}
	}
	return storage.ErrMessageNotFound
}

func (f *fakeMessageRepo) CountUnread(ctx context.Context, profileID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, m := range f.messages {
		if m.ReceiverID != nil && *m.ReceiverID == profileID && !m.Read {
			n++
		}
	}
	return n, nil
}
