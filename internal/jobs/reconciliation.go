package jobs

import (
	"context"
	"log"
	"strconv"
	"time"

	"mercaplaza/internal/models"
	"mercaplaza/internal/pricing"
	"mercaplaza/internal/repositories"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconciliationFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercaplaza_reconciliation_findings_total",
			Help: "Findings raised by the reconciliation sweeps",
		},
		[]string{"kind"},
	)

	dailyCommissionSum = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mercaplaza_daily_commission_sum",
		Help: "Seller commissions settled during the prior day",
	})

	dailyPlatformFeeSum = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mercaplaza_daily_platform_fee_sum",
		Help: "Platform fees charged on orders delivered during the prior day",
	})

	dailyInvoicesIssued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mercaplaza_daily_invoices_issued",
		Help: "Invoices issued during the prior day",
	})
)

// Finding kinds reported by the sweeps.
const (
	FindingMissingInvoice  = "missing_invoice"
	FindingCommissionDrift = "commission_drift"
	FindingFeeDrift        = "platform_fee_drift"
	FindingStuckSettlement = "stuck_settlement"
)

// ReconciliationConfig carries the audit thresholds. They are business
// policy, not constants: a different currency/precision regime tunes them
// through the environment.
type ReconciliationConfig struct {
	// DriftTolerance absorbs accumulated per-line rounding before an order
	// is flagged.
	DriftTolerance float64
	// SettlementGrace is how long a delivered order may keep a pending
	// commission before it counts as stuck.
	SettlementGrace time.Duration
	// Window is how far back the sweeps look.
	Window time.Duration
}

func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		DriftTolerance:  0.02,
		SettlementGrace: time.Hour,
		Window:          7 * 24 * time.Hour,
	}
}

// Finding is one anomaly surfaced by a sweep. The auditor only reports;
// remediation is an operator decision.
type Finding struct {
	Kind        string
	OrderNumber string
	Detail      string
}

// ReconciliationService re-derives expected commission and fee amounts from
// persisted line items and flags orders whose stored amounts drifted, plus
// orders stuck mid-way through the invoicing pipeline. It is read-only with
// respect to business data and tolerates orders changing under it: a false
// positive is re-checked on the next run.
type ReconciliationService struct {
	orderRepo   repositories.OrderRepository
	itemRepo    repositories.OrderItemRepository
	invoiceRepo repositories.InvoiceRepository
	config      ReconciliationConfig
}

func NewReconciliationService(orderRepo repositories.OrderRepository, itemRepo repositories.OrderItemRepository,
	invoiceRepo repositories.InvoiceRepository, config ReconciliationConfig) *ReconciliationService {
	if config.DriftTolerance <= 0 {
		config.DriftTolerance = 0.02
	}
	if config.SettlementGrace <= 0 {
		config.SettlementGrace = time.Hour
	}
	if config.Window <= 0 {
		config.Window = 7 * 24 * time.Hour
	}
	return &ReconciliationService{
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		invoiceRepo: invoiceRepo,
		config:      config,
	}
}

// CheckMissingInvoices flags delivered orders whose settlement ran but whose
// commission invoice never appeared, i.e. the event handler failed after the
// status flip.
func (s *ReconciliationService) CheckMissingInvoices(ctx context.Context) ([]Finding, error) {
	orders, err := s.orderRepo.MissingCommissionInvoices(ctx, time.Now().Add(-s.config.Window))
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, order := range orders {
		findings = append(findings, Finding{
			Kind:        FindingMissingInvoice,
			OrderNumber: order.OrderNumber,
			Detail: "commission settled but no commission invoice was issued (status " +
				order.CommissionStatus + ")",
		})
	}
	return findings, nil
}

// CheckDiscrepancies recomputes the settlement from line items using each
// order's stored rates and flags amounts that drifted beyond the tolerance.
func (s *ReconciliationService) CheckDiscrepancies(ctx context.Context) ([]Finding, error) {
	now := time.Now()
	orders, err := s.orderRepo.DeliveredBetween(ctx, now.Add(-s.config.Window), now)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, order := range orders {
		items, err := s.itemRepo.ListByOrder(ctx, order.ID)
		if err != nil {
			log.Printf("reconciliation: load items for order %s: %v", order.OrderNumber, err)
			continue
		}
		findings = append(findings, s.auditOrder(order, items)...)
	}
	return findings, nil
}

// driftEpsilon absorbs float64 subtraction noise so a deviation sitting
// exactly on the tolerance is not flagged.
const driftEpsilon = 1e-9

func (s *ReconciliationService) auditOrder(order *models.Order, items []*models.OrderItem) []Finding {
	var subtotal float64
	for _, item := range items {
		subtotal += item.LineTotal
	}
	subtotal = pricing.Round2(subtotal)
	taxable := pricing.Round2(subtotal - order.DiscountAmount)

	var findings []Finding

	expectedCommission := pricing.Percentage(taxable, order.SellerCommissionRate)
	if diff := abs(order.SellerCommissionAmount - expectedCommission); diff > s.config.DriftTolerance+driftEpsilon {
		findings = append(findings, Finding{
			Kind:        FindingCommissionDrift,
			OrderNumber: order.OrderNumber,
			Detail: "stored commission " + format2(order.SellerCommissionAmount) +
				" deviates from expected " + format2(expectedCommission),
		})
	}

	expectedFee := pricing.Percentage(taxable, order.PlatformFeeRate)
	if diff := abs(order.PlatformFeeAmount - expectedFee); diff > s.config.DriftTolerance+driftEpsilon {
		findings = append(findings, Finding{
			Kind:        FindingFeeDrift,
			OrderNumber: order.OrderNumber,
			Detail: "stored platform fee " + format2(order.PlatformFeeAmount) +
				" deviates from expected " + format2(expectedFee),
		})
	}

	return findings
}

// CheckStuckSettlements flags delivered orders whose commission is still
// pending after the grace period: the settlement step either never ran or
// failed without a trace.
func (s *ReconciliationService) CheckStuckSettlements(ctx context.Context) ([]Finding, error) {
	orders, err := s.orderRepo.StuckSettlements(ctx, time.Now().Add(-s.config.SettlementGrace))
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, order := range orders {
		findings = append(findings, Finding{
			Kind:        FindingStuckSettlement,
			OrderNumber: order.OrderNumber,
			Detail:      "delivered but commission is still pending past the grace period",
		})
	}
	return findings, nil
}

// RunSweep executes all checks and reports the findings. Errors in one check
// do not stop the others.
func (s *ReconciliationService) RunSweep(ctx context.Context) {
	checks := []struct {
		name string
		run  func(context.Context) ([]Finding, error)
	}{
		{"missing-invoices", s.CheckMissingInvoices},
		{"discrepancies", s.CheckDiscrepancies},
		{"stuck-settlements", s.CheckStuckSettlements},
	}

	for _, check := range checks {
		findings, err := check.run(ctx)
		if err != nil {
			log.Printf("reconciliation %s sweep failed: %v", check.name, err)
			continue
		}
		for _, finding := range findings {
			reconciliationFindings.WithLabelValues(finding.Kind).Inc()
			log.Printf("reconciliation [%s] order %s: %s", finding.Kind, finding.OrderNumber, finding.Detail)
		}
		if len(findings) == 0 {
			log.Printf("reconciliation %s sweep clean", check.name)
		}
	}
}

// ReportDailyMetrics aggregates the prior day's settled money and issued
// invoices for operational visibility.
func (s *ReconciliationService) ReportDailyMetrics(ctx context.Context) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	summary, err := s.orderRepo.FinancialSummary(ctx, dayStart, dayEnd)
	if err != nil {
		log.Printf("daily metrics: financial summary failed: %v", err)
		return
	}
	invoiceCount, invoiceTotal, err := s.invoiceRepo.CountIssuedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		log.Printf("daily metrics: invoice count failed: %v", err)
		return
	}

	dailyCommissionSum.Set(summary.CommissionSum)
	dailyPlatformFeeSum.Set(summary.PlatformFeeSum)
	dailyInvoicesIssued.Set(float64(invoiceCount))

	log.Printf("daily metrics %s: %d delivered orders, commissions %s, platform fees %s, %d invoices totalling %s",
		dayStart.Format("2006-01-02"), summary.DeliveredOrders, format2(summary.CommissionSum),
		format2(summary.PlatformFeeSum), invoiceCount, format2(invoiceTotal))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
