package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/tamales-preorder/internal/domain"
	"github.com/tamales-preorder/internal/infrastructure/mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const orderDateLayout = "Mon, Jan 2 2006 3:04 PM MST"

type Service interface {
	SendVerification(ctx context.Context, req domain.VerificationEmailRequest) error
	SendOrderEmails(ctx context.Context, req domain.SendOrderEmailsRequest) error
}

type smsSender interface {
	SendSMS(ctx context.Context, message string) error
}

type service struct {
	mailer     mail.Sender
	sms        smsSender
	adminEmail string
	storeName  string
	pickup     []string
	now        func() time.Time
}

type ServiceDeps struct {
	Mailer mail.Sender
	// SMSSender is optional; when set, the admin also gets a text per order.
	SMSSender     smsSender
	AdminEmail    string
	StoreName     string
	PickupDetails []string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		mailer:     deps.Mailer,
		sms:        deps.SMSSender,
		adminEmail: deps.AdminEmail,
		storeName:  deps.StoreName,
		pickup:     deps.PickupDetails,
		now:        time.Now,
	}
}

type verificationView struct {
	Store string
	Name  string
	Code  string
	Year  int
}

type itemView struct {
	Name  string
	Qty   int
	Total string
}

type orderView struct {
	Store     string
	Name      string
	Email     string
	Phone     string
	Items     []itemView
	Total     string
	OrderDate string
	Pickup    []string
	Year      int
}

func (s *service) SendVerification(ctx context.Context, req domain.VerificationEmailRequest) error {
	email := domain.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return domain.BadRequest("Email and code required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "there"
	}
	html, err := render("verification.html", verificationView{
		Store: s.storeName,
		Name:  name,
		Code:  code,
		Year:  s.now().Year(),
	})
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: "Verify Your Email - " + s.storeName,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// SendOrderEmails notifies the admin first, then the customer. The customer
// email is not attempted when the admin email fails.
func (s *service) SendOrderEmails(ctx context.Context, req domain.SendOrderEmailsRequest) error {
	o := req.Order
	if o == nil || domain.NormalizeEmail(o.Email) == "" || o.Items == nil {
		return domain.BadRequest("Invalid order payload")
	}
	view := s.orderView(o)

	adminHTML, err := render("admin_order.html", view)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{s.adminEmail},
		Subject: "New Tamales Order from " + view.Name,
		HTML:    adminHTML,
	})
	if err != nil {
		return fmt.Errorf("send admin email: %w", err)
	}

	customerHTML, err := render("customer_order.html", view)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{view.Email},
		Subject: "¡Order Confirmed! - " + s.storeName,
		HTML:    customerHTML,
	})
	if err != nil {
		return fmt.Errorf("send customer email: %w", err)
	}

	s.textAdmin(ctx, view, o.Items)
	return nil
}

func (s *service) orderView(o *domain.OrderNotification) orderView {
	v := orderView{
		Store:  s.storeName,
		Name:   strings.TrimSpace(o.Name),
		Email:  domain.NormalizeEmail(o.Email),
		Phone:  strings.TrimSpace(o.Phone),
		Total:  o.GrandTotal.Format(),
		Pickup: s.pickup,
		Year:   s.now().Year(),
	}
	if v.Name == "" {
		v.Name = v.Email
	}
	if v.Phone == "" {
		v.Phone = "Not provided"
	}
	placed := s.now()
	if o.CreatedAt != nil && !o.CreatedAt.IsZero() {
		placed = *o.CreatedAt
	}
	v.OrderDate = placed.Format(orderDateLayout)
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{Name: it.Name, Qty: it.Qty, Total: it.Total.Format()})
	}
	return v
}

// textAdmin is best-effort: the emails already went out.
func (s *service) textAdmin(ctx context.Context, v orderView, items []domain.LineItem) {
	if s.sms == nil {
		return
	}
	dozens := 0
	for _, it := range items {
		dozens += it.Qty
	}
	msg := fmt.Sprintf("New order from %s: %d dozen, total $%s", v.Name, dozens, v.Total)
	if err := s.sms.SendSMS(ctx, msg); err != nil {
		slog.Warn("admin sms failed", "err", err)
	}
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
