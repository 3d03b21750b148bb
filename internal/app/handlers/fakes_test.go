package handlers_test

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/filestore"
	security "github.com/iwanyu/marketplace/internal/jwt-new"
	"github.com/iwanyu/marketplace/internal/service"
)

type fakeAuthService struct {
	session   *service.Session
	err       error
	signedOut *security.Claims
	resetFor  string
}

func (f *fakeAuthService) SignUp(ctx context.Context, email, password, fullName string) (*service.Session, error) {
	return f.session, f.err
}

func (f *fakeAuthService) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	return f.session, f.err
}

func (f *fakeAuthService) SignOut(ctx context.Context, claims *security.Claims) error {
	f.signedOut = claims
	return f.err
}

func (f *fakeAuthService) GetSession(ctx context.Context, profileID int64) (*models.Principal, error) {
	if f.session == nil {
		return nil, f.err
	}
	return f.session.Principal, f.err
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	f.resetFor = email
	return f.err
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.err
}

type fakeVendorService struct {
	vendor  *models.Vendor
	err     error
	adminID int64
	reason  string
}

func (f *fakeVendorService) Register(ctx context.Context, profileID int64, in service.VendorInput) (*models.Vendor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Vendor{ID: 1, ProfileID: profileID, BusinessName: in.BusinessName, Status: models.VendorPending}, nil
}

func (f *fakeVendorService) Me(ctx context.Context, profileID int64) (*models.Vendor, error) {
	return f.vendor, f.err
}

func (f *fakeVendorService) List(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error) {
	return []*models.Vendor{f.vendor}, f.err
}

func (f *fakeVendorService) Approve(ctx context.Context, id, adminID int64) (*models.Vendor, error) {
	f.adminID = adminID
	return f.vendor, f.err
}

func (f *fakeVendorService) Reject(ctx context.Context, id, adminID int64, reason string) (*models.Vendor, error) {
	f.adminID, f.reason = adminID, reason
	return f.vendor, f.err
}

func (f *fakeVendorService) Suspend(ctx context.Context, id, adminID int64) (*models.Vendor, error) {
	f.adminID = adminID
	return f.vendor, f.err
}

type fakeProductService struct {
	product *models.Product
	err     error
	filter  models.ProductFilter
	input   service.ProductInput
}

func (f *fakeProductService) Create(ctx context.Context, vendor *models.Vendor, in service.ProductInput) (*models.Product, error) {
	f.input = in
	return f.product, f.err
}

func (f *fakeProductService) Update(ctx context.Context, vendor *models.Vendor, id int64, in service.ProductInput) (*models.Product, error) {
	f.input = in
	return f.product, f.err
}

func (f *fakeProductService) Delete(ctx context.Context, vendor *models.Vendor, id int64) error {
	return f.err
}

func (f *fakeProductService) ListOwn(ctx context.Context, vendor *models.Vendor, filter models.ProductFilter) ([]*models.Product, error) {
	f.filter = filter
	return []*models.Product{f.product}, f.err
}

func (f *fakeProductService) Submit(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error) {
	return f.product, f.err
}

func (f *fakeProductService) Archive(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error) {
	return f.product, f.err
}

func (f *fakeProductService) Catalog(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.filter = filter
	return []*models.Product{f.product}, f.err
}

func (f *fakeProductService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.filter = filter
	return []*models.Product{f.product}, f.err
}

func (f *fakeProductService) Approve(ctx context.Context, id int64) (*models.Product, error) {
	return f.product, f.err
}

func (f *fakeProductService) Reject(ctx context.Context, id int64, reason string) (*models.Product, error) {
	return f.product, f.err
}

type fakeOrderService struct {
	order   *models.Order
	err     error
	csv     string
	adminID int64
}

func (f *fakeOrderService) Checkout(ctx context.Context, in service.CheckoutInput) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) ListOwn(ctx context.Context, vendor *models.Vendor, status models.OrderStatus) ([]*models.Order, error) {
	return []*models.Order{f.order}, f.err
}

func (f *fakeOrderService) GetOwn(ctx context.Context, vendor *models.Vendor, id int64) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, vendor *models.Vendor, id int64, to models.OrderStatus) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) List(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error) {
	return []*models.Order{f.order}, f.err
}

func (f *fakeOrderService) UpdatePaymentStatus(ctx context.Context, id, adminID int64, to models.PaymentStatus) (*models.Order, error) {
	f.adminID = adminID
	return f.order, f.err
}

func (f *fakeOrderService) ExportCSV(ctx context.Context, w io.Writer, status models.OrderStatus) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.csv)
	return err
}

type fakePayoutService struct {
	payout  *models.Payout
	balance models.Balance
	err     error
	adminID int64
	notes   string
}

func (f *fakePayoutService) Balance(ctx context.Context, vendorID int64) (models.Balance, error) {
	return f.balance, f.err
}

func (f *fakePayoutService) Request(ctx context.Context, vendor *models.Vendor, req service.PayoutRequest) (*models.Payout, error) {
	return f.payout, f.err
}

func (f *fakePayoutService) ListOwn(ctx context.Context, vendor *models.Vendor, status models.PayoutStatus) ([]*models.Payout, error) {
	return []*models.Payout{f.payout}, f.err
}

func (f *fakePayoutService) List(ctx context.Context, status models.PayoutStatus) ([]*models.Payout, error) {
	return []*models.Payout{f.payout}, f.err
}

func (f *fakePayoutService) Approve(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	f.adminID, f.notes = adminID, notes
	return f.payout, f.err
}

func (f *fakePayoutService) Reject(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	f.adminID, f.notes = adminID, notes
	return f.payout, f.err
}

func (f *fakePayoutService) Complete(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	f.adminID, f.notes = adminID, notes
	return f.payout, f.err
}

type fakeDashboardService struct {
	vendorStats *service.VendorStats
	adminStats  *service.AdminStats
	series      []models.DailyRevenue
	err         error
	days        int
	vendorID    *int64
}

func (f *fakeDashboardService) VendorStats(ctx context.Context, me *models.Principal) (*service.VendorStats, error) {
	return f.vendorStats, f.err
}

func (f *fakeDashboardService) AdminStats(ctx context.Context) (*service.AdminStats, error) {
	return f.adminStats, f.err
}

func (f *fakeDashboardService) SalesSeries(ctx context.Context, vendorID *int64, days int) ([]models.DailyRevenue, error) {
	f.vendorID, f.days = vendorID, days
	return f.series, f.err
}

type fakeMessageService struct {
	message  *models.Message
	err      error
	unread   int
	stream   chan *models.Message
	contacts []*models.Profile
}

func (f *fakeMessageService) Send(ctx context.Context, sender *models.Principal, receiverID int64, text string) (*models.Message, error) {
	return f.message, f.err
}

func (f *fakeMessageService) Announce(ctx context.Context, sender *models.Principal, text string) (*models.Message, error) {
	return f.message, f.err
}

func (f *fakeMessageService) Conversation(ctx context.Context, me *models.Principal, peerID int64) ([]*models.Message, error) {
	return []*models.Message{f.message}, f.err
}

func (f *fakeMessageService) Inbox(ctx context.Context, me *models.Principal) ([]*models.Message, error) {
	return []*models.Message{f.message}, f.err
}

func (f *fakeMessageService) MarkRead(ctx context.Context, me *models.Principal, id int64) error {
	return f.err
}

func (f *fakeMessageService) UnreadCount(ctx context.Context, me *models.Principal) (int, error) {
	return f.unread, f.err
}

func (f *fakeMessageService) Subscribe(ctx context.Context, me *models.Principal) (<-chan *models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func (f *fakeMessageService) Contacts(ctx context.Context, me *models.Principal) ([]*models.Profile, error) {
	return f.contacts, f.err
}

type fakeProfileService struct {
	profiles []*models.Profile
	err      error
	role     models.Role
	id       int64
	adminID  int64
	active   *bool
}

func (f *fakeProfileService) List(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	f.role = role
	return f.profiles, f.err
}

func (f *fakeProfileService) SetActive(ctx context.Context, id, adminID int64, active bool) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.id, f.adminID, f.active = id, adminID, &active
	return &models.Profile{ID: id, Active: active}, nil
}

type fakeFileStore struct {
	bucket   string
	owner    int64
	body     []byte
	err      error
	maxBytes int64
	// files содержимое по "<bucket>/<key>" для Open
	files map[string]string
}

func (f *fakeFileStore) Save(ctx context.Context, bucket string, ownerID int64, r io.Reader) (*filestore.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.bucket, f.owner, f.body = bucket, ownerID, body
	return &filestore.File{Bucket: bucket, Key: "10/a.png", URL: "/files/" + bucket + "/10/a.png", ContentType: "image/png", Size: int64(len(body))}, nil
}

func (f *fakeFileStore) List(ctx context.Context, bucket string, ownerID int64) ([]*filestore.File, error) {
	return nil, f.err
}

func (f *fakeFileStore) Open(ctx context.Context, bucket, key string) (io.ReadSeekCloser, time.Time, error) {
	body, ok := f.files[bucket+"/"+key]
	if !ok {
		return nil, time.Time{}, filestore.ErrFileNotFound
	}
	return nopSeekCloser{strings.NewReader(body)}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil
}

func (f *fakeFileStore) MaxBytes() int64 {
	if f.maxBytes == 0 {
		return 1 << 20
	}
	return f.maxBytes
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }
