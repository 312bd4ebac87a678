package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/verso-cms/server-verso/internal/config"
	"github.com/verso-cms/server-verso/internal/managers"
	"github.com/verso-cms/server-verso/internal/managers/mocks"
	"github.com/verso-cms/server-verso/internal/stores"
)

const userColumnList = "user_id, name, email, password, role, verified, email_verified_at, " +
	"profile_picture_url, accepted_tos, verification_sent_at, created_at, updated_at"

const tokenColumnList = "token_id, user_id, token_hash, token_type, expires_at, created_at"

func testConfig() *config.Config {
	return &config.Config{
		Port:        "8080",
		Environment: "test",
		FrontendURL: "http://localhost:5173",

		JWTAccessSecret:  "access-secret-for-tests",
		JWTRefreshSecret: "refresh-secret-for-tests",

		AccessTokenLifetime:       15 * time.Minute,
		RefreshTokenLifetime:      7 * 24 * time.Hour,
		VerificationTokenLifetime: 15 * time.Minute,
		ResendCooldown:            time.Minute,
	}
}

func setupMocks(t *testing.T) (*config.Config, *mocks.MockDatabaseManager, managers.JWTMgr, *mocks.MockMailManager) {
	t.Setenv("ENVIRONMENT", "test")

	poolMock, err := pgxmock.NewPool()
	if err != nil {
		log.Errorf("Error creating mock database pool: %v", err)
	}

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	cfg := testConfig()
	jwtMgr := managers.NewJWTManager(cfg)

	mailMgrMock := &mocks.MockMailManager{}
	mailMgrMock.On("SendVerificationMail", mock.AnythingOfType("string"), mock.AnythingOfType("string"),
		mock.AnythingOfType("string")).Return(nil)
	mailMgrMock.On("SendPasswordResetMail", mock.AnythingOfType("string"), mock.AnythingOfType("string"),
		mock.AnythingOfType("string")).Return(nil)

	return cfg, databaseMgrMock, jwtMgr, mailMgrMock
}

func userColumns() []string {
	return strings.Split(userColumnList, ", ")
}

func tokenColumns() []string {
	return strings.Split(tokenColumnList, ", ")
}

func userRow(userId uuid.UUID, name, email, passwordHash, role string, verified bool,
	verificationSentAt interface{}) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userColumns()).
		AddRow(userId, name, email, passwordHash, role, verified, nil, "", true, verificationSentAt, now, now)
}

func TestSignup(t *testing.T) {
	signupBody := map[string]interface{}{
		"name":        "Test Author",
		"email":       "test@example.com",
		"password":    "test.Password123",
		"acceptedTOS": true,
	}

	t.Run("ValidSignup", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns()))
		poolMock.ExpectExec("INSERT INTO verso_schema.users").
			WithArgs(pgxmock.AnyArg(), "Test Author", "test@example.com", pgxmock.AnyArg(), "user", false,
				"", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(pgxmock.AnyArg(), "EMAIL_VERIFICATION").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		poolMock.ExpectExec("INSERT INTO verso_schema.verification_tokens").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "EMAIL_VERIFICATION",
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("UPDATE verso_schema.users SET verification_sent_at").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signup").WithJSON(signupBody).
			Expect().Status(http.StatusCreated)

		body := response.JSON().Object()
		body.HasValue("name", "Test Author")
		body.HasValue("email", "test@example.com")
		body.HasValue("role", "user")
		body.HasValue("verified", false)

		mailMgrMock.AssertCalled(t, "SendVerificationMail", "test@example.com", "Test Author",
			mock.AnythingOfType("string"))

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("DuplicateVerifiedEmail", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(uuid.New(), "Test Author", "test@example.com", "hash", "user", true, nil))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signup").WithJSON(signupBody).
			Expect().Status(http.StatusBadRequest)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-002")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("UnverifiedDuplicateResendsToken", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		userId := uuid.New()
		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", false,
				time.Now().Add(-5*time.Minute)))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectExec("INSERT INTO verso_schema.verification_tokens").
			WithArgs(pgxmock.AnyArg(), userId, pgxmock.AnyArg(), "EMAIL_VERIFICATION",
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("UPDATE verso_schema.users SET verification_sent_at").
			WithArgs(pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signup").WithJSON(signupBody).
			Expect().Status(http.StatusOK)

		response.JSON().Object().Value("message").String().
			Contains("already registered but not verified")

		mailMgrMock.AssertNumberOfCalls(t, "SendVerificationMail", 1)

		// No user insert is expected, a second row would fail the ordered
		// expectations.
		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		weakBody := map[string]interface{}{
			"name":        "Test Author",
			"email":       "test@example.com",
			"password":    "alllowercase",
			"acceptedTOS": true,
		}

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signup").WithJSON(weakBody).
			Expect().Status(http.StatusBadRequest)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-001")
	})
}

func TestSignin(t *testing.T) {
	password := "test.Password123"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userId := uuid.New()

	signinBody := func(password string) map[string]interface{} {
		return map[string]interface{}{
			"email":    "test@example.com",
			"password": password,
		}
	}

	t.Run("ValidSignin", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", string(hash), "user", true, nil))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signin").WithJSON(signinBody(password)).
			Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.Value("token").String().NotEmpty()
		body.Value("refreshToken").String().NotEmpty()
		body.Value("user").Object().HasValue("email", "test@example.com")

		response.Cookie("refreshToken").Value().NotEmpty()

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", string(hash), "user", true, nil))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signin").WithJSON(signinBody("wrong.Password123")).
			Expect().Status(http.StatusUnauthorized)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-009")
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns()))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signin").WithJSON(signinBody(password)).
			Expect().Status(http.StatusNotFound)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-008")
	})

	t.Run("UnverifiedAccount", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", string(hash), "user", false, nil))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/signin").WithJSON(signinBody(password)).
			Expect().Status(http.StatusForbidden)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-010")
	})
}

func TestVerifyEmail(t *testing.T) {
	rawToken := strings.Repeat("a1b2", 16)
	userId := uuid.New()

	verifyBody := map[string]interface{}{
		"email": "test@example.com",
		"token": rawToken,
	}

	t.Run("ValidVerification", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", false, nil))
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnRows(pgxmock.NewRows(tokenColumns()).
				AddRow(uuid.New(), userId, stores.HashToken(rawToken), "EMAIL_VERIFICATION",
					time.Now().Add(10*time.Minute), time.Now()))
		poolMock.ExpectExec("UPDATE verso_schema.users SET verified").
			WithArgs(pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/verify").WithJSON(verifyBody).
			Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.Value("token").String().NotEmpty()
		body.Value("user").Object().HasValue("verified", true)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", false, nil))
		// No active token, only an expired one.
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnRows(pgxmock.NewRows(tokenColumns()))
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnRows(pgxmock.NewRows(tokenColumns()).
				AddRow(uuid.New(), userId, stores.HashToken(rawToken), "EMAIL_VERIFICATION",
					time.Now().Add(-10*time.Minute), time.Now().Add(-time.Hour)))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/verify").WithJSON(verifyBody).
			Expect().Status(http.StatusUnauthorized)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-006")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", true, nil))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/verify").WithJSON(verifyBody).
			Expect().Status(http.StatusBadRequest)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-003")
	})
}

func TestResendVerification(t *testing.T) {
	userId := uuid.New()
	resendBody := map[string]interface{}{"email": "test@example.com"}

	t.Run("CooldownActive", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", false, time.Now()))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/resend-verification").WithJSON(resendBody).
			Expect().Status(http.StatusBadRequest)

		errorObject := response.JSON().Object().Value("error").Object()
		errorObject.HasValue("code", "ERR-007")
		errorObject.Value("message").String().
			Match(`wait [1-9]\d* seconds`)
	})

	t.Run("CooldownElapsed", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", false,
				time.Now().Add(-5*time.Minute)))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId, "EMAIL_VERIFICATION").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectExec("INSERT INTO verso_schema.verification_tokens").
			WithArgs(pgxmock.AnyArg(), userId, pgxmock.AnyArg(), "EMAIL_VERIFICATION",
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("UPDATE verso_schema.users SET verification_sent_at").
			WithArgs(pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		expect.POST("/api/auth/resend-verification").WithJSON(resendBody).
			Expect().Status(http.StatusOK)

		mailMgrMock.AssertCalled(t, "SendVerificationMail", "test@example.com", "Test Author",
			mock.AnythingOfType("string"))

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestPasswordReset(t *testing.T) {
	rawToken := strings.Repeat("c3d4", 16)
	userId := uuid.New()

	t.Run("ForgotPasswordUnknownEmailStaysGeneric", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("unknown@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns()))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/forgot-password").
			WithJSON(map[string]interface{}{"email": "unknown@example.com"}).
			Expect().Status(http.StatusOK)

		response.JSON().Object().Value("message").String().Contains("If the address is registered")

		mailMgrMock.AssertNotCalled(t, "SendPasswordResetMail", mock.Anything, mock.Anything, mock.Anything)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("ResetPasswordValidToken", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", true, nil))
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "PASSWORD_RESET").
			WillReturnRows(pgxmock.NewRows(tokenColumns()).
				AddRow(uuid.New(), userId, stores.HashToken(rawToken), "PASSWORD_RESET",
					time.Now().Add(10*time.Minute), time.Now()))
		poolMock.ExpectExec("UPDATE verso_schema.users SET password").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId, "PASSWORD_RESET").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		expect.POST("/api/auth/reset-password").WithJSON(map[string]interface{}{
			"email":       "test@example.com",
			"token":       rawToken,
			"newPassword": "new.Password123",
		}).Expect().Status(http.StatusOK)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("ResetPasswordTokenConsumedConcurrently", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", true, nil))
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "PASSWORD_RESET").
			WillReturnRows(pgxmock.NewRows(tokenColumns()).
				AddRow(uuid.New(), userId, stores.HashToken(rawToken), "PASSWORD_RESET",
					time.Now().Add(10*time.Minute), time.Now()))
		poolMock.ExpectExec("UPDATE verso_schema.users SET password").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		// Another request consumed the token between our read and the
		// delete.
		poolMock.ExpectExec("DELETE FROM verso_schema.verification_tokens").
			WithArgs(userId, "PASSWORD_RESET").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/reset-password").WithJSON(map[string]interface{}{
			"email":       "test@example.com",
			"token":       rawToken,
			"newPassword": "new.Password123",
		}).Expect().Status(http.StatusInternalServerError)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-013")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("ResetPasswordWrongToken", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT").WithArgs("test@example.com").
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", true, nil))
		poolMock.ExpectQuery("SELECT").WithArgs(userId, "PASSWORD_RESET").
			WillReturnRows(pgxmock.NewRows(tokenColumns()).
				AddRow(uuid.New(), userId, stores.HashToken("other-token"), "PASSWORD_RESET",
					time.Now().Add(10*time.Minute), time.Now()))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/reset-password").WithJSON(map[string]interface{}{
			"email":       "test@example.com",
			"token":       rawToken,
			"newPassword": "new.Password123",
		}).Expect().Status(http.StatusUnauthorized)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-005")
	})
}

func TestRefreshToken(t *testing.T) {
	userId := uuid.New()

	t.Run("ValidRefresh", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, err := jwtMgr.GenerateTokenPair(userId.String(), "test@example.com", "user", true)
		if err != nil {
			t.Fatalf("error generating token pair: %v", err)
		}

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT").WithArgs(userId).
			WillReturnRows(userRow(userId, "Test Author", "test@example.com", "hash", "user", true, nil))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/refresh-token").
			WithJSON(map[string]interface{}{"refreshToken": pair.RefreshToken}).
			Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.Value("token").String().NotEmpty()
		body.Value("refreshToken").String().NotEmpty()

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("DeletedUser", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, err := jwtMgr.GenerateTokenPair(userId.String(), "test@example.com", "user", true)
		if err != nil {
			t.Fatalf("error generating token pair: %v", err)
		}

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT").WithArgs(userId).
			WillReturnRows(pgxmock.NewRows(userColumns()))

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/refresh-token").
			WithJSON(map[string]interface{}{"refreshToken": pair.RefreshToken}).
			Expect().Status(http.StatusForbidden)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-015")
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, err := jwtMgr.GenerateTokenPair(userId.String(), "test@example.com", "user", true)
		if err != nil {
			t.Fatalf("error generating token pair: %v", err)
		}

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/auth/refresh-token").
			WithJSON(map[string]interface{}{"refreshToken": pair.Token}).
			Expect().Status(http.StatusUnauthorized)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-005")
	})
}

func TestCategoryAdministration(t *testing.T) {
	t.Run("AdminCreatesCategory", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(uuid.New().String(), "admin@example.com", "admin", true)

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectExec("INSERT INTO verso_schema.categories").
			WithArgs(pgxmock.AnyArg(), "Cloud Native", "cloud-native").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/categories").
			WithHeader("Authorization", "Bearer "+pair.Token).
			WithJSON(map[string]interface{}{"name": "Cloud Native"}).
			Expect().Status(http.StatusCreated)

		body := response.JSON().Object()
		body.HasValue("name", "Cloud Native")
		body.HasValue("slug", "cloud-native")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("RegularUserForbidden", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(uuid.New().String(), "user@example.com", "user", true)

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/categories").
			WithHeader("Authorization", "Bearer "+pair.Token).
			WithJSON(map[string]interface{}{"name": "Cloud Native"}).
			Expect().Status(http.StatusForbidden)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-025")
	})
}

func TestListArticles(t *testing.T) {
	articleColumns := []string{"article_id", "title", "slug", "content", "published", "created_at",
		"name", "profile_picture_url", "category_id", "category_name", "category_slug"}

	t.Run("EmptyList", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT COUNT").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		poolMock.ExpectQuery("SELECT").WithArgs(10, 0).
			WillReturnRows(pgxmock.NewRows(articleColumns))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/articles").Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.Value("records").Array().IsEmpty()
		body.Value("pagination").Object().HasValue("records", 0)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestLikeComment(t *testing.T) {
	commentId := uuid.New()

	t.Run("DuplicateLikeConflicts", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(uuid.New().String(), "user@example.com", "user", true)

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectExec("INSERT INTO verso_schema.comment_likes").
			WithArgs(commentId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/comments/"+commentId.String()+"/likes").
			WithHeader("Authorization", "Bearer "+pair.Token).
			Expect().Status(http.StatusConflict)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-023")
	})

	t.Run("UnverifiedUserForbidden", func(t *testing.T) {
		cfg, databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(cfg, databaseMgrMock, mailMgrMock, jwtMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(uuid.New().String(), "user@example.com", "user", false)

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/comments/"+commentId.String()+"/likes").
			WithHeader("Authorization", "Bearer "+pair.Token).
			Expect().Status(http.StatusForbidden)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-010")
	})
}
