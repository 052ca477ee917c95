package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/Vonnie2507/Probuild-ERP-Replit/models"
	"github.com/shopspring/decimal"
)

// End-to-end numbering behavior against real MySQL: the unique indexes on the
// number columns are the final authority, so these paths are only fully
// covered with the real database underneath.
func TestNumberingEndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "probuild_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Smith Residence"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// Leads number sequentially from PVC-001.
	var leads []*models.Lead
	for i := 0; i < 3; i++ {
		lead, err := models.CreateLead(ctx, &models.NewLead{
			CustomerId: customer.ID,
			FenceType:  "Colorbond",
		})
		if err != nil {
			t.Fatalf("CreateLead #%d: %v", i+1, err)
		}
		leads = append(leads, lead)
	}
	for i, want := range []string{"PVC-001", "PVC-002", "PVC-003"} {
		if leads[i].LeadNumber != want {
			t.Fatalf("lead %d: got %s, want %s", i, leads[i].LeadNumber, want)
		}
	}

	// Deleting a lead leaves a permanent gap.
	if _, err := models.DeleteLead(ctx, leads[1].ID); err != nil {
		t.Fatalf("DeleteLead: %v", err)
	}
	lead4, err := models.CreateLead(ctx, &models.NewLead{CustomerId: customer.ID})
	if err != nil {
		t.Fatalf("CreateLead after delete: %v", err)
	}
	if lead4.LeadNumber != "PVC-004" {
		t.Fatalf("lead after gap: got %s, want PVC-004 (PVC-002 must not be reissued)", lead4.LeadNumber)
	}

	// Numeric ordering survives the 999 -> 1000 boundary (no lexicographic max).
	seed := models.Lead{LeadNumber: "PVC-999", CustomerId: customer.ID, Stage: models.LeadStageNew}
	if err := db.WithContext(ctx).Create(&seed).Error; err != nil {
		t.Fatalf("seed PVC-999: %v", err)
	}
	lead1000, err := models.CreateLead(ctx, &models.NewLead{CustomerId: customer.ID})
	if err != nil {
		t.Fatalf("CreateLead past 999: %v", err)
	}
	if lead1000.LeadNumber != "PVC-1000" {
		t.Fatalf("lead past 999: got %s, want PVC-1000", lead1000.LeadNumber)
	}

	// Quotes number per lead and the lead is stamped Quoted.
	qty := decimal.NewFromInt(10)
	price := decimal.NewFromFloat(85.50)
	var quotes []*models.Quote
	for i := 0; i < 2; i++ {
		quote, err := models.CreateQuote(ctx, &models.NewQuote{
			LeadId: leads[0].ID,
			Items: []*models.NewQuoteItem{
				{Description: "Colorbond panels", Qty: qty, UnitPrice: price},
			},
		})
		if err != nil {
			t.Fatalf("CreateQuote #%d: %v", i+1, err)
		}
		quotes = append(quotes, quote)
	}
	if quotes[0].QuoteNumber != "PVC-001-Q1" || quotes[1].QuoteNumber != "PVC-001-Q2" {
		t.Fatalf("quote numbers: got %s, %s", quotes[0].QuoteNumber, quotes[1].QuoteNumber)
	}
	wantTotal := qty.Mul(price)
	if !quotes[0].Total.Equal(wantTotal) {
		t.Fatalf("quote total: got %s, want %s", quotes[0].Total, wantTotal)
	}
	stamped, err := models.GetLead(ctx, leads[0].ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if stamped.Stage != models.LeadStageQuoted {
		t.Fatalf("lead stage after quoting: got %s, want Quoted", stamped.Stage)
	}

	// A second lead's quotes start back at Q1.
	otherQuote, err := models.CreateQuote(ctx, &models.NewQuote{
		LeadId: leads[2].ID,
		Items: []*models.NewQuoteItem{
			{Description: "Gate hardware", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(250)},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote other lead: %v", err)
	}
	if otherQuote.QuoteNumber != "PVC-003-Q1" {
		t.Fatalf("other lead quote: got %s, want PVC-003-Q1", otherQuote.QuoteNumber)
	}

	// Approve a quote through the sales flow.
	if _, err := models.UpdateQuoteStatus(ctx, quotes[0].ID, models.QuoteStatusSent); err != nil {
		t.Fatalf("UpdateQuoteStatus Sent: %v", err)
	}
	if _, err := models.UpdateQuoteStatus(ctx, quotes[0].ID, models.QuoteStatusApproved); err != nil {
		t.Fatalf("UpdateQuoteStatus Approved: %v", err)
	}

	// Job + invoice are derived from the lead number and created together.
	job, err := models.CreateJob(ctx, &models.NewJob{
		LeadId:  leads[0].ID,
		QuoteId: quotes[0].ID,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.JobNumber != "PVC-001-JOB" {
		t.Fatalf("job number: got %s, want PVC-001-JOB", job.JobNumber)
	}
	var invoice models.Invoice
	if err := db.WithContext(ctx).Where("job_id = ?", job.ID).First(&invoice).Error; err != nil {
		t.Fatalf("fetch invoice: %v", err)
	}
	if invoice.InvoiceNumber != "PVC-001-INV" {
		t.Fatalf("invoice number: got %s, want PVC-001-INV", invoice.InvoiceNumber)
	}
	if !invoice.Amount.Equal(wantTotal) {
		t.Fatalf("invoice amount: got %s, want quote total %s", invoice.Amount, wantTotal)
	}

	// A second job on the same lead must be refused by the unique index.
	if _, err := models.CreateJob(ctx, &models.NewJob{LeadId: leads[0].ID}); err == nil {
		t.Fatalf("second job on one lead must fail")
	}

	// Partial then full payment.
	half := wantTotal.Div(decimal.NewFromInt(2))
	paid, err := models.RecordInvoicePayment(ctx, invoice.ID, &models.NewInvoicePayment{Amount: half, Method: "EFT"})
	if err != nil {
		t.Fatalf("RecordInvoicePayment partial: %v", err)
	}
	if paid.Status != models.InvoiceStatusPartiallyPaid {
		t.Fatalf("invoice status after partial payment: got %s", paid.Status)
	}
	paid, err = models.RecordInvoicePayment(ctx, invoice.ID, &models.NewInvoicePayment{Amount: half, Method: "EFT"})
	if err != nil {
		t.Fatalf("RecordInvoicePayment final: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice status after full payment: got %s", paid.Status)
	}

	// Paying a paid invoice is refused.
	if _, err := models.RecordInvoicePayment(ctx, invoice.ID, &models.NewInvoicePayment{Amount: half}); err == nil {
		t.Fatalf("payment against a paid invoice must fail")
	}

	// A zero-amount invoice (job raised without a quote) takes no payments at
	// all rather than sitting partially paid forever.
	zeroJob, err := models.CreateJob(ctx, &models.NewJob{LeadId: lead4.ID})
	if err != nil {
		t.Fatalf("CreateJob without quote: %v", err)
	}
	var zeroInvoice models.Invoice
	if err := db.WithContext(ctx).Where("job_id = ?", zeroJob.ID).First(&zeroInvoice).Error; err != nil {
		t.Fatalf("fetch zero-amount invoice: %v", err)
	}
	if _, err := models.RecordInvoicePayment(ctx, zeroInvoice.ID, &models.NewInvoicePayment{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Fatalf("payment against a zero-amount invoice must fail")
	}
}

// Concurrent lead creation across goroutines must mint distinct numbers; the
// redis lock plus retry-on-duplicate absorbs the races.
func TestConcurrentLeadNumbering(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "probuild_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Concurrent Pty Ltd"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lead, err := models.CreateLead(ctx, &models.NewLead{CustomerId: customer.ID})
			if err != nil {
				errs <- err
				return
			}
			numbers <- lead.LeadNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent CreateLead: %v", err)
	}
	seen := make(map[string]bool)
	for number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate lead number minted: %s", number)
		}
		seen[number] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), n)
	}
}

// Concurrent payments against one invoice must each land: the row lock inside
// RecordInvoicePayment serializes the read-add-write of AmountPaid, so no
// payment may overwrite another's running total.
func TestConcurrentInvoicePayments(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "probuild_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Parallel Payments Pty Ltd"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	lead, err := models.CreateLead(ctx, &models.NewLead{CustomerId: customer.ID})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	const n = 8
	installment := decimal.NewFromInt(20)
	total := installment.Mul(decimal.NewFromInt(n))

	job, err := models.CreateJob(ctx, &models.NewJob{LeadId: lead.ID, Amount: total})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	var invoice models.Invoice
	if err := db.WithContext(ctx).Where("job_id = ?", job.ID).First(&invoice).Error; err != nil {
		t.Fatalf("fetch invoice: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := models.RecordInvoicePayment(ctx, invoice.ID, &models.NewInvoicePayment{
				Amount: installment,
				Method: "EFT",
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent RecordInvoicePayment: %v", err)
	}

	final, err := models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !final.AmountPaid.Equal(total) {
		t.Fatalf("amount paid after %d concurrent payments: got %s, want %s", n, final.AmountPaid, total)
	}
	if final.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice status: got %s, want Paid", final.Status)
	}
	if len(final.Payments) != n {
		t.Fatalf("payment rows: got %d, want %d", len(final.Payments), n)
	}
}

// Credential lifecycle against the real stack: bcrypt hashes round-trip
// through the varchar column, corrupt hashes reject, and a password change
// takes effect on the next login.
func TestUserCredentialLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "probuild_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()

	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: "estimator",
		Name:     "Pat Estimator",
		Password: "first-pass",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := models.Login(ctx, "estimator", "first-pass"); err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}
	if _, err := models.Login(ctx, "estimator", "wrong-pass"); err == nil {
		t.Fatalf("Login with wrong password must fail")
	}

	// A mangled stored hash must reject the login, not let it through.
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("Password", "mangled-hash").Error; err != nil {
		t.Fatalf("mangle stored hash: %v", err)
	}
	if _, err := models.Login(ctx, "estimator", "first-pass"); err == nil {
		t.Fatalf("Login against a corrupt stored hash must fail")
	}

	if _, err := models.UpdateUserPassword(ctx, user.ID, "second-pass"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	if _, err := models.Login(ctx, "estimator", "first-pass"); err == nil {
		t.Fatalf("Login with the old password must fail after the change")
	}
	if _, err := models.Login(ctx, "estimator", "second-pass"); err != nil {
		t.Fatalf("Login with the new password: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("probuild-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("probuild-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=probuild_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
