package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/domain"
)

type fakeClientRepo struct {
	clients map[string]*domain.Client
}

func (f *fakeClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return c, nil
}

type fakeTemplateRepo struct {
	clientTemplates map[string]*domain.EmailTemplate
	accountant      *domain.EmailTemplate
}

func (f *fakeTemplateRepo) GetForClient(ctx context.Context, clientID string) (*domain.EmailTemplate, error) {
	tmpl, ok := f.clientTemplates[clientID]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return tmpl, nil
}

func (f *fakeTemplateRepo) GetAccountant(ctx context.Context) (*domain.EmailTemplate, error) {
	if f.accountant == nil {
		return nil, domain.ErrTemplateNotFound
	}
	return f.accountant, nil
}

type fakeHistoryRepo struct {
	records   []*domain.EmailHistoryRecord
	insertErr error
	nextID    int
}

func (f *fakeHistoryRepo) Insert(ctx context.Context, rec *domain.EmailHistoryRecord) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	rec.ID = fmt.Sprintf("hist-%d", f.nextID)
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func (f *fakeHistoryRepo) ListByInvoice(ctx context.Context, invoiceID string, p domain.PaginationParams) ([]*domain.EmailHistoryRecord, int, error) {
	return f.records, len(f.records), nil
}

type fakeTransport struct {
	sent      []*domain.Message
	sendErr   error
	verifyErr error
}

func (f *fakeTransport) Send(ctx context.Context, msg *domain.Message) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return "<msg-1@test>", nil
}

func (f *fakeTransport) Verify(ctx context.Context) error { return f.verifyErr }

type fakeTransportProvider struct {
	transport    *fakeTransport
	from         string
	getErr       error
	invalidated  []string
	gotAccountID string
	gotOwnerID   string
}

func (f *fakeTransportProvider) Get(ctx context.Context, accountID, ownerID string) (domain.Transport, string, error) {
	f.gotAccountID = accountID
	f.gotOwnerID = ownerID
	if f.getErr != nil {
		return nil, "", f.getErr
	}
	return f.transport, f.from, nil
}

func (f *fakeTransportProvider) Invalidate(accountID string) {
	f.invalidated = append(f.invalidated, accountID)
}

// sendFixture wires an emailService over fakes for one scenario.
type sendFixture struct {
	invoices  *fakeInvoiceRepo
	history   *fakeHistoryRepo
	transport *fakeTransport
	provider  *fakeTransportProvider
	service   domain.EmailService
}

func newSendFixture(t *testing.T, inv *domain.Invoice, client *domain.Client, mutate func(f *sendFixture)) *sendFixture {
	t.Helper()
	f := &sendFixture{
		invoices:  newFakeInvoiceRepo(inv),
		history:   &fakeHistoryRepo{},
		transport: &fakeTransport{},
	}
	f.provider = &fakeTransportProvider{transport: f.transport, from: "billing@me.test"}
	clients := &fakeClientRepo{clients: map[string]*domain.Client{}}
	if client != nil {
		clients.clients[client.ID] = client
	}
	clientID := ""
	if client != nil {
		clientID = client.ID
	}
	templates := &fakeTemplateRepo{
		clientTemplates: map[string]*domain.EmailTemplate{
			clientID: {ID: "tmpl-client", Subject: "Invoice {{invoiceNumber}}", Body: "Dear {{clientName}}"},
		},
		accountant: &domain.EmailTemplate{ID: "tmpl-acct", Subject: "Forward {{invoiceNumber}}", Body: "Amount {{invoiceAmount}}"},
	}
	settings := &fakeSettingsRepo{accountantEmail: "books@acct.test"}
	files := &fakeFileStore{files: map[string][]byte{
		"k/invoice.pdf":   []byte("inv"),
		"k/timesheet.pdf": []byte("ts"),
	}}
	if mutate != nil {
		mutate(f)
	}
	workflow := NewInvoiceWorkflow(f.invoices, settings)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewEmailService(f.invoices, clients, templates, settings, f.history, workflow, f.provider, NewAttachmentAssembler(files), logger)
	return f
}

func testInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:       "inv-1",
		ClientID: "c-1",
		Number:   "2025-007",
		Amount:   500,
		Files: []domain.InvoiceFile{
			{Key: "k/invoice.pdf", Name: "invoice.pdf", Type: domain.FileTypeInvoice},
			{Key: "k/timesheet.pdf", Name: "timesheet.pdf", Type: domain.FileTypeTimesheet},
		},
	}
}

func testClient() *domain.Client {
	return &domain.Client{
		ID:                "c-1",
		OwnerID:           "u-1",
		Name:              "Acme Ltd",
		Email:             "ap@acme.test",
		CC:                []string{"cfo@acme.test"},
		Currency:          domain.CurrencyEUR,
		RequiresTimesheet: true,
	}
}

func TestSendInvoiceToClient(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), nil)

	res, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
		OwnerID:   "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "<msg-1@test>", res.MessageID)
	assert.NotEmpty(t, res.HistoryID)

	require.Len(t, f.transport.sent, 1)
	msg := f.transport.sent[0]
	assert.Equal(t, "billing@me.test", msg.From)
	assert.Equal(t, "ap@acme.test", msg.To)
	assert.Equal(t, []string{"cfo@acme.test"}, msg.CC)
	assert.Equal(t, "Invoice 2025-007", msg.Subject)
	assert.Equal(t, "Dear Acme Ltd", msg.Body)
	assert.Len(t, msg.Attachments, 2, "client requiring timesheets gets invoice and timesheet")

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, domain.SendStatusSent, rec.Status)
	assert.Equal(t, domain.RecipientClient, rec.RecipientType)
	assert.Equal(t, "Invoice 2025-007", rec.Subject)
	assert.Empty(t, rec.ErrorMessage)

	stored := f.invoices.invoices["inv-1"]
	assert.True(t, stored.SentToClient)
	assert.NotNil(t, stored.SentToClientAt)
}

func TestSendInvoiceEmptyOwnerUsesClientOwner(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), nil)

	_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
		AccountID: "acc-7",
	})
	require.NoError(t, err)

	// The owner-default account resolver must see the client's owner when
	// the caller did not supply one.
	assert.Equal(t, "acc-7", f.provider.gotAccountID)
	assert.Equal(t, "u-1", f.provider.gotOwnerID)
}

func TestSendInvoiceToAccountant(t *testing.T) {
	inv := testInvoice()
	inv.SentToClient = true
	f := newSendFixture(t, inv, testClient(), nil)

	res, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientAccountant,
		OwnerID:   "u-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	require.Len(t, f.transport.sent, 1)
	msg := f.transport.sent[0]
	assert.Equal(t, "books@acct.test", msg.To)
	assert.Empty(t, msg.CC, "client CC list never applies to accountant sends")
	assert.Len(t, msg.Attachments, 1, "timesheet must not reach the accountant")
	assert.Equal(t, "invoice.pdf", msg.Attachments[0].Filename)

	stored := f.invoices.invoices["inv-1"]
	assert.True(t, stored.SentToAccountant)
}

func TestSendInvoiceAccountantGate(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), nil)

	_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientAccountant,
	})
	require.ErrorIs(t, err, domain.ErrWorkflowGate)

	assert.Empty(t, f.transport.sent, "gated send must never reach the transport")
	require.Len(t, f.history.records, 1, "the blocked attempt is still audited")
	assert.Equal(t, domain.SendStatusFailed, f.history.records[0].Status)
	assert.NotEmpty(t, f.history.records[0].ErrorMessage)
	assert.False(t, f.invoices.invoices["inv-1"].SentToAccountant)
}

func TestSendInvoiceTransportFailure(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), func(f *sendFixture) {
		f.transport.sendErr = errors.New("550 mailbox unavailable")
	})

	_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 mailbox unavailable")

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, domain.SendStatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "550 mailbox unavailable")
	assert.False(t, f.invoices.invoices["inv-1"].SentToClient, "workflow state stays put on failure")
}

func TestSendInvoiceOAuthFailureSurfacesReconnect(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), func(f *sendFixture) {
		f.provider.getErr = domain.ErrOAuthRefresh
	})

	_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
	})
	require.ErrorIs(t, err, domain.ErrOAuthRefresh)

	require.Len(t, f.history.records, 1)
	assert.Equal(t, domain.SendStatusFailed, f.history.records[0].Status)
}

func TestSendInvoiceHistoryFailureIsBestEffort(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), func(f *sendFixture) {
		f.history.insertErr = errors.New("history table locked")
	})

	res, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
	})
	require.NoError(t, err, "a history failure never masks a successful send")
	assert.NotEmpty(t, res.MessageID)
	assert.Empty(t, res.HistoryID)
	assert.True(t, f.invoices.invoices["inv-1"].SentToClient)
}

func TestSendInvoiceValidationFailures(t *testing.T) {
	t.Run("invoice not found", func(t *testing.T) {
		f := newSendFixture(t, testInvoice(), testClient(), nil)
		_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
			InvoiceID: "nope",
			Recipient: domain.RecipientClient,
		})
		require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
		assert.Empty(t, f.history.records)
	})

	t.Run("invoice without client", func(t *testing.T) {
		inv := testInvoice()
		inv.ClientID = ""
		f := newSendFixture(t, inv, testClient(), nil)
		_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
			InvoiceID: "inv-1",
			Recipient: domain.RecipientClient,
		})
		require.ErrorIs(t, err, domain.ErrInvoiceHasNoClient)
	})

	t.Run("client without email", func(t *testing.T) {
		client := testClient()
		client.Email = ""
		f := newSendFixture(t, testInvoice(), client, nil)
		_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
			InvoiceID: "inv-1",
			Recipient: domain.RecipientClient,
		})
		require.ErrorIs(t, err, domain.ErrNoRecipientEmail)
		assert.Empty(t, f.history.records, "no recipient known, nothing to audit")
	})

	t.Run("no invoice file", func(t *testing.T) {
		inv := testInvoice()
		inv.Files = []domain.InvoiceFile{{Key: "k/timesheet.pdf", Name: "timesheet.pdf", Type: domain.FileTypeTimesheet}}
		f := newSendFixture(t, inv, testClient(), nil)
		_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
			InvoiceID: "inv-1",
			Recipient: domain.RecipientClient,
		})
		require.ErrorIs(t, err, domain.ErrNoInvoiceFiles)
		require.Len(t, f.history.records, 1)
		assert.Equal(t, domain.SendStatusFailed, f.history.records[0].Status)
	})
}

func TestSendInvoiceWorkflowPersistFailureAfterSend(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), func(f *sendFixture) {
		f.invoices.updateErr = errors.New("connection reset")
	})

	_, err := f.service.SendInvoice(context.Background(), domain.SendInvoiceInput{
		InvoiceID: "inv-1",
		Recipient: domain.RecipientClient,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow update failed")

	require.Len(t, f.transport.sent, 1, "the message already went out")
	require.Len(t, f.history.records, 1)
	assert.Equal(t, domain.SendStatusSent, f.history.records[0].Status, "sent means sent, even if persistence broke")
}

func TestVerifyAccount(t *testing.T) {
	f := newSendFixture(t, testInvoice(), testClient(), nil)
	require.NoError(t, f.service.VerifyAccount(context.Background(), "acc-1", "u-1"))

	f.transport.verifyErr = errors.New("535 authentication failed")
	err := f.service.VerifyAccount(context.Background(), "acc-1", "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535")
}
