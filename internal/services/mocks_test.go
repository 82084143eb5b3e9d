package services

import (
	"fmt"
	"time"

	"invitation-platform/internal/models"
	"invitation-platform/internal/repositories"
)

// fakeOrderRepo is an in-memory OrderRepository. Completion materializes one
// event per order item into the linked fakeEventRepo, mirroring the real
// repository's transactional behavior.
type fakeOrderRepo struct {
	orders      map[int]*models.Order
	events      *fakeEventRepo
	nextID      int
	completions int
}

func newFakeOrderRepo(events *fakeEventRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[int]*models.Order),
		events: events,
		nextID: 1,
	}
}

func (f *fakeOrderRepo) Create(req *models.OrderCreateRequest) (*models.Order, error) {
	order := &models.Order{
		ID:           f.nextID,
		OrderNumber:  models.GenerateOrderNumber(),
		UserID:       req.UserID,
		Status:       models.OrderPending,
		TotalAmount:  req.TotalAmount,
		BillingEmail: req.BillingEmail,
		BillingName:  req.BillingName,
		CreatedAt:    time.Now(),
	}
	for i, item := range req.Items {
		copied := *item
		copied.ID = i + 1
		copied.OrderID = order.ID
		order.Items = append(order.Items, &copied)
	}
	f.orders[order.ID] = order
	f.nextID++
	return order, nil
}

func (f *fakeOrderRepo) GetByID(id int) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (f *fakeOrderRepo) ProcessOrderCompletion(orderID int, paymentRef string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if order.Status != models.OrderPending {
		return false, nil
	}
	order.Status = models.OrderCompleted
	order.PaymentRef = paymentRef
	now := time.Now()
	order.CompletedAt = &now
	f.completions++
	for _, item := range order.Items {
		f.events.add(&models.Event{
			OrderID:        order.ID,
			OrderItemID:    item.ID,
			OwnerID:        order.UserID,
			Title:          item.EventTitle,
			City:           item.EventCity,
			Date:           item.EventDate,
			PackageTier:    item.Selection.PackageTier,
			InviteCount:    item.Selection.InviteCount,
			Status:         models.EventActive,
			ApprovalStatus: models.ApprovalPending,
		})
	}
	return true, nil
}

func (f *fakeOrderRepo) MarkTerminal(orderID int, status models.OrderStatus, reason string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if order.Status != models.OrderPending {
		return false, nil
	}
	order.Status = status
	order.StatusReason = reason
	return true, nil
}

func (f *fakeOrderRepo) Search(filters repositories.OrderSearchFilters) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, order := range f.orders {
		if filters.UserID != 0 && order.UserID != filters.UserID {
			continue
		}
		out = append(out, order)
	}
	return out, len(out), nil
}

func (f *fakeOrderRepo) GetOrderStatistics(userID *int) (map[string]interface{}, error) {
	return map[string]interface{}{"total_orders": len(f.orders)}, nil
}

// fakeEventRepo is an in-memory EventRepository
type fakeEventRepo struct {
	events map[int]*models.Event
	guests *fakeGuestRepo
	nextID int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[int]*models.Event), nextID: 1}
}

func (f *fakeEventRepo) add(event *models.Event) *models.Event {
	event.ID = f.nextID
	f.events[event.ID] = event
	f.nextID++
	return event
}

func (f *fakeEventRepo) GetByID(id int) (*models.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

func (f *fakeEventRepo) GetByOrder(orderID int) ([]*models.Event, error) {
	var out []*models.Event
	for _, event := range f.events {
		if event.OrderID == orderID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) GetByOwner(ownerID int) ([]*models.Event, error) {
	var out []*models.Event
	for _, event := range f.events {
		if event.OwnerID == ownerID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) GetPendingApproval(limit, offset int) ([]*models.Event, error) {
	var out []*models.Event
	for _, event := range f.events {
		if event.IsPendingApproval() {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Approve(id int, cardImageKey, cardImageURL, notes, qrReaderURL string, reviewerID int) (bool, error) {
	event, ok := f.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if event.ApprovalStatus != models.ApprovalPending {
		return false, nil
	}
	now := time.Now()
	event.ApprovalStatus = models.ApprovalApproved
	event.CardImageKey = cardImageKey
	event.CardImageURL = cardImageURL
	event.ApprovalNotes = notes
	event.QRReaderURL = qrReaderURL
	event.ReviewedAt = &now
	event.ReviewedBy = &reviewerID
	return true, nil
}

func (f *fakeEventRepo) Reject(id int, reason string, reviewerID int) (bool, error) {
	event, ok := f.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if event.ApprovalStatus != models.ApprovalPending {
		return false, nil
	}
	now := time.Now()
	event.ApprovalStatus = models.ApprovalRejected
	event.RejectionReason = reason
	event.ReviewedAt = &now
	event.ReviewedBy = &reviewerID
	return true, nil
}

func (f *fakeEventRepo) ConfirmGuestList(id int, confirmedBy int) (bool, error) {
	event, ok := f.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if event.GuestList.IsConfirmed {
		return false, nil
	}
	if f.guests != nil {
		count, _ := f.guests.CountByEvent(id)
		if count == 0 {
			return false, nil
		}
	}
	now := time.Now()
	event.GuestList.IsConfirmed = true
	event.GuestList.ConfirmedAt = &now
	event.GuestList.ConfirmedBy = &confirmedBy
	return true, nil
}

func (f *fakeEventRepo) ReopenGuestList(id int, reopenedBy int) (bool, error) {
	event, ok := f.events[id]
	if !ok {
		return false, models.ErrEventNotFound
	}
	if !event.GuestList.IsConfirmed {
		return false, nil
	}
	now := time.Now()
	event.GuestList.IsConfirmed = false
	event.GuestList.ReopenedAt = &now
	event.GuestList.ReopenedBy = &reopenedBy
	event.GuestList.ReopenCount++
	return true, nil
}

func (f *fakeEventRepo) UpdateStatus(id int, status models.EventStatus) error {
	event, ok := f.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	event.Status = status
	return nil
}

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[int]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(id int) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// fakeGuestRepo is an in-memory GuestRepository that charges collaborator
// quotas the way the real repository does.
type fakeGuestRepo struct {
	guests        map[int]*models.Guest
	collaborators *fakeCollaboratorRepo
	nextID        int
}

func newFakeGuestRepo(collaborators *fakeCollaboratorRepo) *fakeGuestRepo {
	return &fakeGuestRepo{
		guests:        make(map[int]*models.Guest),
		collaborators: collaborators,
		nextID:        1,
	}
}

func (f *fakeGuestRepo) chargeQuota(collaboratorID, delta int) error {
	if f.collaborators == nil {
		return nil
	}
	c, ok := f.collaborators.collaborators[collaboratorID]
	if !ok {
		return models.ErrCollaboratorNotFound
	}
	if c.UsedInvites+delta > c.AllocatedInvites {
		return &models.QuotaExceededError{
			Allocated: c.AllocatedInvites,
			Used:      c.UsedInvites,
			Requested: delta,
		}
	}
	c.UsedInvites += delta
	if c.UsedInvites < 0 {
		c.UsedInvites = 0
	}
	return nil
}

func (f *fakeGuestRepo) Create(guest *models.Guest) (*models.Guest, error) {
	if guest.AddedByCollaborator != nil {
		if err := f.chargeQuota(*guest.AddedByCollaborator, guest.NumberOfAccompanying); err != nil {
			return nil, err
		}
	}
	copied := *guest
	copied.ID = f.nextID
	copied.CreatedAt = time.Now()
	f.guests[copied.ID] = &copied
	f.nextID++
	return &copied, nil
}

func (f *fakeGuestRepo) GetByID(id int) (*models.Guest, error) {
	guest, ok := f.guests[id]
	if !ok {
		return nil, models.ErrGuestNotFound
	}
	return guest, nil
}

func (f *fakeGuestRepo) GetByEvent(eventID int) ([]*models.Guest, error) {
	var out []*models.Guest
	for _, guest := range f.guests {
		if guest.EventID == eventID {
			out = append(out, guest)
		}
	}
	return out, nil
}

func (f *fakeGuestRepo) CountByEvent(eventID int) (int, error) {
	guests, _ := f.GetByEvent(eventID)
	return len(guests), nil
}

func (f *fakeGuestRepo) Update(id int, req *models.GuestUpdateRequest) (*models.Guest, error) {
	guest, ok := f.guests[id]
	if !ok {
		return nil, models.ErrGuestNotFound
	}
	if req.NumberOfAccompanying != nil && guest.AddedByCollaborator != nil {
		delta := *req.NumberOfAccompanying - guest.NumberOfAccompanying
		if err := f.chargeQuota(*guest.AddedByCollaborator, delta); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		guest.Name = *req.Name
	}
	if req.Phone != nil {
		guest.Phone = *req.Phone
	}
	if req.NumberOfAccompanying != nil {
		guest.NumberOfAccompanying = *req.NumberOfAccompanying
	}
	return guest, nil
}

func (f *fakeGuestRepo) Delete(id int) error {
	guest, ok := f.guests[id]
	if !ok {
		return models.ErrGuestNotFound
	}
	if guest.AddedByCollaborator != nil {
		f.chargeQuota(*guest.AddedByCollaborator, -guest.NumberOfAccompanying)
	}
	delete(f.guests, id)
	return nil
}

func (f *fakeGuestRepo) MarkWhatsappSent(id int) error {
	guest, ok := f.guests[id]
	if !ok {
		return models.ErrGuestNotFound
	}
	guest.WhatsappMessageSent = true
	return nil
}

func (f *fakeGuestRepo) UpdateRSVP(id int, status models.RSVPStatus) error {
	guest, ok := f.guests[id]
	if !ok {
		return models.ErrGuestNotFound
	}
	now := time.Now()
	guest.RSVPStatus = status
	guest.RSVPAt = &now
	return nil
}

func (f *fakeGuestRepo) RecordAttendance(id int, attended bool) error {
	guest, ok := f.guests[id]
	if !ok {
		return models.ErrGuestNotFound
	}
	guest.ActuallyAttended = &attended
	return nil
}

func (f *fakeGuestRepo) GetUnsentByEvent(eventID int) ([]*models.Guest, error) {
	var out []*models.Guest
	for _, guest := range f.guests {
		if guest.EventID == eventID && !guest.WhatsappMessageSent {
			out = append(out, guest)
		}
	}
	return out, nil
}

// fakeCollaboratorRepo is an in-memory CollaboratorRepository enforcing the
// same limit and quota checks as the real one.
type fakeCollaboratorRepo struct {
	collaborators map[int]*models.Collaborator
	nextID        int
}

func newFakeCollaboratorRepo() *fakeCollaboratorRepo {
	return &fakeCollaboratorRepo{collaborators: make(map[int]*models.Collaborator), nextID: 1}
}

func (f *fakeCollaboratorRepo) Allocate(event *models.Event, req *models.CollaboratorCreateRequest, maxCollaborators int, accessToken string) (*models.Collaborator, error) {
	count := 0
	allocated := 0
	for _, c := range f.collaborators {
		if c.EventID == event.ID {
			count++
			allocated += c.AllocatedInvites
		}
	}
	if count >= maxCollaborators {
		return nil, &models.CollaboratorLimitError{Tier: event.PackageTier, Limit: maxCollaborators, Current: count}
	}
	if allocated+req.AllocatedInvites > event.InviteCount {
		return nil, &models.QuotaExceededError{
			Allocated: event.InviteCount,
			Used:      allocated,
			Requested: req.AllocatedInvites,
		}
	}
	c := &models.Collaborator{
		ID:               f.nextID,
		EventID:          event.ID,
		Name:             req.Name,
		Phone:            req.Phone,
		AllocatedInvites: req.AllocatedInvites,
		Permissions:      req.Permissions,
		AccessToken:      accessToken,
		CreatedAt:        time.Now(),
	}
	f.collaborators[c.ID] = c
	f.nextID++
	return c, nil
}

func (f *fakeCollaboratorRepo) GetByID(id int) (*models.Collaborator, error) {
	c, ok := f.collaborators[id]
	if !ok {
		return nil, models.ErrCollaboratorNotFound
	}
	return c, nil
}

func (f *fakeCollaboratorRepo) GetByEvent(eventID int) ([]*models.Collaborator, error) {
	var out []*models.Collaborator
	for _, c := range f.collaborators {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCollaboratorRepo) GetByAccessToken(token string) (*models.Collaborator, error) {
	for _, c := range f.collaborators {
		if c.AccessToken == token {
			return c, nil
		}
	}
	return nil, models.ErrCollaboratorNotFound
}

func (f *fakeCollaboratorRepo) Delete(id int) error {
	if _, ok := f.collaborators[id]; !ok {
		return models.ErrCollaboratorNotFound
	}
	delete(f.collaborators, id)
	return nil
}

// fakeNotifier records sends and can be told to fail
type fakeNotifier struct {
	invites   []int
	completed []string
	decisions []int
	failSends bool
}

func (f *fakeNotifier) SendGuestInvite(guest *models.Guest, event *models.Event) error {
	if f.failSends {
		return fmt.Errorf("send failed")
	}
	f.invites = append(f.invites, guest.ID)
	return nil
}

func (f *fakeNotifier) SendOrderCompleted(phone string, order *models.Order) error {
	if f.failSends {
		return fmt.Errorf("send failed")
	}
	f.completed = append(f.completed, order.OrderNumber)
	return nil
}

func (f *fakeNotifier) SendEventDecision(phone string, event *models.Event) error {
	if f.failSends {
		return fmt.Errorf("send failed")
	}
	f.decisions = append(f.decisions, event.ID)
	return nil
}
