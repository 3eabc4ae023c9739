package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/auth"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/utils"
)

const (
	testAppBinary         = "./rsc_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	testDbName            = "rsc_records_integration"
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/v1/ping"

	adminEmail    = "admin@rsc-integration.test"
	adminPassword = "Adm1n-Integration-Pass"
)

// TestMain builds the binary, seeds the database, and runs the API and
// background worker as separate processes, the way they deploy.
func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	godotenv.Load()
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}

	if err := seedTestData(); err != nil {
		log.Printf("Failed to seed test data: %v", err)
		os.Exit(1)
	}

	commonEnv := []string{
		"MONGO_DB_NAME=" + testDbName,
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"REDIS_ADDR=localhost:6379",
		"SMTP_FROM_ADDRESS=test@rsc-integration.test",
		"EDIT_LOCK_SWEEP_MINUTES=1",
	}

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(os.Environ(), append(commonEnv,
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=50",
		"RATE_LIMIT_SOFT_REFILL_RATE=50",
		"RATE_LIMIT_HARD_BUCKET_SIZE=100",
		"RATE_LIMIT_HARD_REFILL_RATE=100",
	)...)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting API process...")
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(os.Environ(), append(commonEnv,
		"SERVICE_API_PORT="+testServiceApiPortBg,
	)...)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting Background Worker process...")
	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start Background Worker process: %v", err)
		os.Exit(1)
	}

	defer func() {
		log.Println("Integration Test Teardown: Shutting down application processes...")
		stopProcess(bgCmd, "Background Worker")
		stopProcess(apiCmd, "API Process")
	}()

	// Wait for the API to come up.
	ready := false
	startTime := time.Now()
	for time.Since(startTime) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil && resp.StatusCode == http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) == "pong" {
				ready = true
				break
			}
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		os.Exit(1)
	}

	// Give the background worker a moment to register its handlers.
	time.Sleep(2 * time.Second)

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func stopProcess(cmd *exec.Cmd, name string) {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("Failed to send SIGTERM to %s: %v. Killing.", name, err)
		_ = cmd.Process.Kill()
		return
	}
	_, _ = cmd.Process.Wait()
}

// seedTestData drops the integration collections and provisions the admin
// account the tests drive staff operations with.
func seedTestData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(testDbName)
	for _, coll := range []string{"accounts", "inquiries", "inquiries_archive", "client_inquiries", "in_progress", "completed", "audit_logs"} {
		_ = db.Collection(coll).Drop(ctx)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Collection("accounts").InsertOne(ctx, models.Account{
		ID:           utils.NewID(),
		Name:         "Integration Admin",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return err
}

// --- HTTP helpers ---

func doJSON(t *testing.T, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, testAppURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		// Not all endpoints return objects; ignore unmarshal failures and
		// stash the raw payload instead.
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = map[string]json.RawMessage{"_raw": raw}
		}
	}
	return resp, fields
}

func login(t *testing.T, email, password string) string {
	t.Helper()
	resp, fields := doJSON(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login failed for %s", email)
	var token string
	require.NoError(t, json.Unmarshal(fields["token"], &token))
	require.NotEmpty(t, token)
	return token
}

// getEmailFromServiceAPI fetches a captured mock email via the service API.
func getEmailFromServiceAPI(t *testing.T, actionType, email string) map[string]interface{} {
	t.Helper()
	payload := map[string]interface{}{
		"method":    "getTestEmail",
		"arguments": []string{actionType, email},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "getTestEmail(%s, %s)", actionType, email)

	var respBody struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&respBody))
	require.True(t, respBody.Success)
	return respBody.Data
}

// --- Tests ---

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
}

// TestIntegration_FullPipeline drives an inquiry from client submission to a
// completed project over the public API.
func TestIntegration_FullPipeline(t *testing.T) {
	clientEmail := fmt.Sprintf("client_%d@rsc-integration.test", time.Now().UnixNano())
	clientPassword := "Cl1ent-Integration-Pass"

	// Client self-registers and logs in.
	resp, _ := doJSON(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Pipeline Client",
		"email":    clientEmail,
		"password": clientPassword,
		"phone":    "0917 555 0000",
		"address":  "Bacolod City",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	clientToken := login(t, clientEmail, clientPassword)
	adminToken := login(t, adminEmail, adminPassword)

	// Client submits an inquiry.
	resp, fields := doJSON(t, http.MethodPost, "/v1/inquiries", clientToken, map[string]any{
		"classification": "Residential",
		"description":    "Lot subdivision for inheritance",
		"services":       []string{"Subdivision Survey", "Titling Assistance"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inquiryID string
	require.NoError(t, json.Unmarshal(fields["id"], &inquiryID))

	// Staff approves it; the client gets a status email.
	resp, _ = doJSON(t, http.MethodPatch, "/v1/staff/inquiries/"+inquiryID, adminToken, map[string]any{
		"status": "approved",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	emailData := getEmailFromServiceAPI(t, "inquiry_status", clientEmail)
	assert.Contains(t, emailData["subject"], "Approved")

	// Promote to in progress.
	resp, fields = doJSON(t, http.MethodPost, "/v1/staff/inquiries/"+inquiryID+"/promote", adminToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var projectID string
	require.NoError(t, json.Unmarshal(fields["id"], &projectID))

	// Acquire the edit lock and fill in the fieldwork data.
	resp, _ = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/lock", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, "/v1/staff/projects/"+projectID, adminToken, map[string]any{
		"quotation":        "45,000",
		"is_40_paid":       true,
		"is_60_paid":       true,
		"is_schedule_done": true,
		"team":             "Team A",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Attach a project file (metadata; the blob itself goes straight to S3).
	resp, _ = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/files", adminToken, map[string]any{
		"name": "survey-plan.pdf",
		"size": 2048,
		"url":  "https://bucket.s3.amazonaws.com/documents/survey-plan.pdf",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A wrong password must block completion.
	refCode := fmt.Sprintf("RSC-IT-%d", time.Now().UnixNano())
	resp, _ = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/complete", adminToken, map[string]any{
		"password":       "wrong-password",
		"reference_code": refCode,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, fields = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/complete", adminToken, map[string]any{
		"password":       adminPassword,
		"reference_code": refCode,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var gotRef string
	require.NoError(t, json.Unmarshal(fields["reference_code"], &gotRef))
	assert.Equal(t, refCode, gotRef)

	// The client sees the completed record with the reference code in the
	// notification feed.
	req, _ := http.NewRequest(http.MethodGet, testAppURL+"/v1/inquiries/mine?bucket=completed", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var records []models.ClientInquiry
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "Completed", records[0].StatusLabel)
	require.NotEmpty(t, records[0].Notifications)
	last := records[0].Notifications[len(records[0].Notifications)-1]
	assert.Contains(t, last.Message, refCode)

	// Audit trail covers the whole journey.
	req, _ = http.NewRequest(http.MethodGet, testAppURL+"/v1/admin/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	auditResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer auditResp.Body.Close()
	require.Equal(t, http.StatusOK, auditResp.StatusCode)

	var entries []models.AuditLogEntry
	require.NoError(t, json.NewDecoder(auditResp.Body).Decode(&entries))
	assert.GreaterOrEqual(t, len(entries), 4)
}

// TestIntegration_LockContention verifies two staff sessions cannot edit the
// same record at once.
func TestIntegration_LockContention(t *testing.T) {
	adminToken := login(t, adminEmail, adminPassword)

	// Provision a second staff account via the admin API.
	staffEmail := fmt.Sprintf("staff_%d@rsc-integration.test", time.Now().UnixNano())
	staffPassword := "St4ff-Integration-Pass"
	resp, _ := doJSON(t, http.MethodPost, "/v1/admin/accounts", adminToken, map[string]any{
		"name":     "Second Staffer",
		"email":    staffEmail,
		"password": staffPassword,
		"role":     "staff",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	staffToken := login(t, staffEmail, staffPassword)

	// Build a project to fight over.
	clientEmail := fmt.Sprintf("lockclient_%d@rsc-integration.test", time.Now().UnixNano())
	resp, _ = doJSON(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Lock Client",
		"email":    clientEmail,
		"password": "Cl1ent-Lock-Pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	clientToken := login(t, clientEmail, "Cl1ent-Lock-Pass")

	resp, fields := doJSON(t, http.MethodPost, "/v1/inquiries", clientToken, map[string]any{
		"classification": "Commercial",
		"description":    "Verification survey",
		"services":       []string{"Verification Survey"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inquiryID string
	require.NoError(t, json.Unmarshal(fields["id"], &inquiryID))

	resp, _ = doJSON(t, http.MethodPatch, "/v1/staff/inquiries/"+inquiryID, adminToken, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, fields = doJSON(t, http.MethodPost, "/v1/staff/inquiries/"+inquiryID+"/promote", adminToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var projectID string
	require.NoError(t, json.Unmarshal(fields["id"], &projectID))

	// Admin takes the lock; the second staffer is refused and told who has it.
	resp, _ = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/lock", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, fields = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/lock", staffToken, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var holder string
	require.NoError(t, json.Unmarshal(fields["holder_name"], &holder))
	assert.Equal(t, "Integration Admin", holder)

	// Saving without the lock is refused too.
	resp, _ = doJSON(t, http.MethodPut, "/v1/staff/projects/"+projectID, staffToken, map[string]any{
		"quotation": "99,999",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// After release, the second staffer can take over.
	resp, _ = doJSON(t, http.MethodDelete, "/v1/staff/projects/"+projectID+"/lock", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, "/v1/staff/projects/"+projectID+"/lock", staffToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestIntegration_PasswordReset exercises the reset flow end to end via the
// mock email capture.
func TestIntegration_PasswordReset(t *testing.T) {
	clientEmail := fmt.Sprintf("reset_%d@rsc-integration.test", time.Now().UnixNano())
	resp, _ := doJSON(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Reset Client",
		"email":    clientEmail,
		"password": "Or1ginal-Pass-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, "/v1/auth/password-reset", "", map[string]string{"email": clientEmail})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	emailData := getEmailFromServiceAPI(t, "password_reset", clientEmail)
	body, _ := emailData["body"].(string)
	matches := regexp.MustCompile(`token=([0-9a-f-]+)`).FindStringSubmatch(body)
	require.Len(t, matches, 2, "reset email should carry a token link")

	resp, _ = doJSON(t, http.MethodPost, "/v1/auth/password-reset/confirm", "", map[string]string{
		"token":    matches[1],
		"password": "Brand-New-Pass-456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password out, new password in.
	resp, _ = doJSON(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    clientEmail,
		"password": "Or1ginal-Pass-123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	login(t, clientEmail, "Brand-New-Pass-456")
}
