package service

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/config"
	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"
)

// EmailService 邮件发送服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SetConfig 更新运行时邮件配置
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
}

// OrderNotificationInput 订单通知邮件输入
type OrderNotificationInput struct {
	OrderNo        string
	Category       string
	Amount         models.Money
	Currency       string
	ExpiresAt      *time.Time
	PickupDate     *time.Time
	PickupLocation string
	PickupHours    string
	Note           string
}

// SendOrderNotificationEmail 发送订单通知邮件
func (s *EmailService) SendOrderNotificationEmail(toEmail string, input OrderNotificationInput) error {
	subject, body := buildOrderNotificationContent(input)
	return s.sendTextEmail(toEmail, subject, body)
}

// SendCustomEmail 发送测试邮件或自定义邮件
func (s *EmailService) SendCustomEmail(toEmail, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "SMTP 配置测试邮件"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "这是一封来自 FestiPick 的 SMTP 测试邮件，说明当前配置可正常发送。"
	}
	return s.sendTextEmail(toEmail, subject, body)
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseSSL {
		return normalizeEmailSendError(sendMailWithSSL(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	if s.cfg.UseTLS {
		return normalizeEmailSendError(sendMailWithStartTLS(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	return normalizeEmailSendError(sendMailPlain(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
}

func buildOrderNotificationContent(input OrderNotificationInput) (string, string) {
	amount := input.Amount.String()
	currency := strings.TrimSpace(input.Currency)
	orderLine := fmt.Sprintf("订单号：%s\n金额：%s %s", input.OrderNo, amount, currency)

	switch strings.ToLower(strings.TrimSpace(input.Category)) {
	case constants.NotificationPaymentReminder:
		body := orderLine + "\n\n您的订单尚未完成支付，请尽快完成付款。"
		if input.ExpiresAt != nil {
			body += fmt.Sprintf("\n支付截止时间：%s", input.ExpiresAt.Format("2006-01-02 15:04"))
		}
		return "订单待支付提醒", body
	case constants.NotificationDeadlineWarning:
		body := orderLine + "\n\n您的订单支付时限即将到期，逾期订单将自动取消。"
		if input.ExpiresAt != nil {
			body += fmt.Sprintf("\n支付截止时间：%s", input.ExpiresAt.Format("2006-01-02 15:04"))
		}
		return "订单支付即将截止", body
	case constants.NotificationPaymentExpired:
		return "订单已超时取消", orderLine + "\n\n您的订单因超时未支付已被取消。如需购买请重新下单。"
	case constants.NotificationOrderConfirmed:
		return "订单已确认", orderLine + "\n\n您的订单已确认，我们会在备货完成后通知您取货。"
	case constants.NotificationOrderDelayed:
		body := orderLine + "\n\n您的订单备货出现延迟，我们正在加紧处理。"
		if strings.TrimSpace(input.Note) != "" {
			body += fmt.Sprintf("\n延迟原因：%s", strings.TrimSpace(input.Note))
		}
		return "订单备货延迟", body
	case constants.NotificationOrderReady:
		body := orderLine + "\n\n您的订单已备货完成，凭取货码到取货点领取。"
		body += appendPickupInfo(input)
		return "订单待取货", body
	case constants.NotificationPickupH1:
		body := orderLine + "\n\n您的订单明天可以取货，请留意取货时段。"
		body += appendPickupInfo(input)
		return "取货提醒（明天）", body
	case constants.NotificationPickupToday:
		body := orderLine + "\n\n您的订单今天可以取货，请在取货时段内前往领取。"
		body += appendPickupInfo(input)
		return "取货提醒（今天）", body
	case constants.NotificationOrderCompleted:
		return "订单已完成", orderLine + "\n\n您的订单已完成取货，感谢惠顾。"
	case constants.NotificationOrderCanceled:
		body := orderLine + "\n\n您的订单已取消。"
		if strings.TrimSpace(input.Note) != "" {
			body += fmt.Sprintf("\n取消原因：%s", strings.TrimSpace(input.Note))
		}
		return "订单已取消", body
	case constants.NotificationPaymentPaid:
		return "支付成功", orderLine + "\n\n我们已确认收到您的付款，订单进入备货流程。"
	case constants.NotificationPaymentFailed:
		body := orderLine + "\n\n您的支付未能确认，订单已取消。"
		if strings.TrimSpace(input.Note) != "" {
			body += fmt.Sprintf("\n原因：%s", strings.TrimSpace(input.Note))
		}
		return "支付失败", body
	case constants.NotificationPaymentRefunded:
		body := orderLine + "\n\n您的订单已退款，款项将原路退回。"
		if strings.TrimSpace(input.Note) != "" {
			body += fmt.Sprintf("\n退款说明：%s", strings.TrimSpace(input.Note))
		}
		return "退款通知", body
	default:
		return "订单状态更新", orderLine
	}
}

func appendPickupInfo(input OrderNotificationInput) string {
	var buf strings.Builder
	if input.PickupDate != nil {
		buf.WriteString(fmt.Sprintf("\n取货日期：%s", input.PickupDate.Format("2006-01-02")))
	}
	if strings.TrimSpace(input.PickupHours) != "" {
		buf.WriteString(fmt.Sprintf("\n取货时段：%s", strings.TrimSpace(input.PickupHours)))
	}
	if strings.TrimSpace(input.PickupLocation) != "" {
		buf.WriteString(fmt.Sprintf("\n取货地点：%s", strings.TrimSpace(input.PickupLocation)))
	}
	return buf.String()
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailPlain(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	directKeywords := []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range directKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		hints := []string{"recipient", "user", "mailbox", "address", "rcpt"}
		for _, hint := range hints {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}
