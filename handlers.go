package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"chronyx/models"
	"chronyx/pkg/docscan"
	"chronyx/pkg/policyextract"
	"chronyx/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/profile", createProfileHandler)
	authGroup.GET("/profile", getProfileHandler)
	authGroup.POST("/scan", scanDocumentHandler)
	authGroup.POST("/policies", createPolicyHandler)
	authGroup.GET("/policies", listPoliciesHandler)
	authGroup.GET("/policies/:id", getPolicyHandler)
	authGroup.DELETE("/policies/:id", deletePolicyHandler)
	authGroup.GET("/documents", listDocumentsHandler)
	authGroup.GET("/documents/:id", getDocumentHandler)
}

var (
	scannerOnce sync.Once
	scanner     *docscan.Scanner
	docStore    storage.Store
)

// scanService lazily builds the shared scan pipeline: Tesseract OCR, local
// document storage behind the static /documents route.
func scanService() *docscan.Scanner {
	scannerOnce.Do(func() {
		docStore = storage.NewLocalStore(documentBaseDir(), documentURLPrefix)
		cfg := docscan.DefaultConfig()
		if lang := os.Getenv("TESSERACT_LANG"); lang != "" {
			cfg.Language = lang
		}
		scanner = docscan.NewScanner(cfg, nil, nil, docStore)
	})
	return scanner
}

// storePreview moves the first-page thumbnail out of its temp location and
// under the document base so the review screen can show it. The temp file is
// removed either way; a scan without a preview is still reviewable.
func storePreview(store storage.Store, previewPath, objectPath string) (storedPath, url string) {
	if previewPath == "" {
		return "", ""
	}
	defer os.Remove(previewPath)
	data, err := os.ReadFile(previewPath)
	if err != nil {
		log.Printf("preview read failed: %v", err)
		return "", ""
	}
	storedPath = storage.PreviewObjectPath(objectPath)
	url, err = store.Upload(storedPath, data)
	if err != nil {
		log.Printf("preview store failed: %v", err)
		return "", ""
	}
	return storedPath, url
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// scanDocumentHandler accepts a multipart policy document, runs the scan
// pipeline and returns the inferred fields for review. Nothing is written to
// the policies table here; that happens when the user confirms.
func scanDocumentHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > docscan.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 20MB)"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}

	var lastState docscan.State = docscan.StateIdle
	prog := docscan.NewProgress(func(st docscan.State, _ float64) {
		if st != lastState {
			lastState = st
			log.Printf("scan %s: %s", file.Filename, st)
		}
	})
	objectPath := storage.ObjectPath(strconv.FormatUint(uint64(user.ID), 10), file.Filename)
	ext, err := scanService().Scan(c.Request.Context(), docscan.Request{
		Filename:     file.Filename,
		DeclaredMIME: file.Header.Get("Content-Type"),
		Data:         data,
		UserID:       strconv.FormatUint(uint64(user.ID), 10),
		StorePath:    objectPath,
		Progress:     prog,
	})
	if err != nil {
		if errors.Is(err, docscan.ErrFileTooLarge) || errors.Is(err, docscan.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Keep a failed record so the owner can see and retry the document.
		doc := models.PolicyDocument{
			UserID: user.ID, FileName: file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Failed:      true, FailedReason: err.Error(),
		}
		if derr := db.Create(&doc).Error; derr != nil {
			log.Printf("failed to record failed scan: %v", derr)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "document_id": doc.ID})
		return
	}

	previewPath, previewURL := storePreview(docStore, ext.PreviewPath, objectPath)
	doc := models.PolicyDocument{
		UserID:      user.ID,
		FileName:    file.Filename,
		StorePath:   objectPath,
		PreviewPath: previewPath,
		ContentType: file.Header.Get("Content-Type"),
		Method:      ext.Method,
		Pages:       ext.Pages,
		Chars:       ext.Chars,
		Sparse:      ext.Sparse,
	}
	if err := db.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id":  doc.ID,
		"document_url": ext.DocumentURL,
		"preview_url":  previewURL,
		"method":       ext.Method,
		"pages":        ext.Pages,
		"chars":        ext.Chars,
		"sparse":       ext.Sparse,
		"fields":       ext.Data,
	})
}

// createPolicyHandler stores a policy after the user has reviewed and
// possibly corrected the scanned fields.
func createPolicyHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		DocumentID       *uint  `json:"document_id"`
		PolicyName       string `json:"policy_name"`
		PolicyNumber     string `json:"policy_number"`
		Provider         string `json:"provider"`
		PolicyType       string `json:"policy_type"`
		PremiumAmount    string `json:"premium_amount"`
		PremiumFrequency string `json:"premium_frequency"`
		SumAssured       string `json:"sum_assured"`
		StartDate        string `json:"start_date"`
		RenewalDate      string `json:"renewal_date"`
		InsuredName      string `json:"insured_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PolicyName == "" && req.PolicyNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "policy_name or policy_number required"})
		return
	}
	// User-edited dates may come back in local formats; normalize or reject.
	for _, d := range []*string{&req.StartDate, &req.RenewalDate} {
		if *d == "" {
			continue
		}
		norm := policyextract.NormalizeDate(*d)
		if norm == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + *d})
			return
		}
		*d = norm
	}
	if req.DocumentID != nil {
		var doc models.PolicyDocument
		if err := db.Where("id = ? AND user_id = ?", *req.DocumentID, user.ID).First(&doc).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document not found"})
			return
		}
		// One confirmed policy per scanned document.
		var existing models.Policy
		if err := db.Where("document_id = ?", *req.DocumentID).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "document already confirmed", "id": existing.ID})
			return
		}
	}
	p := models.Policy{
		UserID:           user.ID,
		DocumentID:       req.DocumentID,
		PolicyName:       req.PolicyName,
		PolicyNumber:     req.PolicyNumber,
		Provider:         req.Provider,
		PolicyType:       req.PolicyType,
		PremiumAmount:    req.PremiumAmount,
		PremiumFrequency: req.PremiumFrequency,
		SumAssured:       req.SumAssured,
		StartDate:        req.StartDate,
		RenewalDate:      req.RenewalDate,
		InsuredName:      req.InsuredName,
	}
	if err := db.Create(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID})
}

// listPoliciesHandler lists policies for the authenticated user (admin sees all)
func listPoliciesHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var items []models.Policy
	q := db.Model(&models.Policy{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getPolicyHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var p models.Policy
	if err := db.First(&p, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	if role != "administrator" && p.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not owner"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// deletePolicyHandler removes a policy. The source document record and its
// stored file stay; only the confirmed policy goes away.
func deletePolicyHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var p models.Policy
	if err := db.First(&p, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	if role != "administrator" && p.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not owner"})
		return
	}
	if err := db.Delete(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "policy deleted"})
}

// listDocumentsHandler returns scanned documents; admin sees all, user only their own.
func listDocumentsHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var docs []models.PolicyDocument
	q := db.Model(&models.PolicyDocument{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(100).Find(&docs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// getDocumentHandler returns a single document if admin or owner.
func getDocumentHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var doc models.PolicyDocument
	if err := db.First(&doc, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if role != "administrator" && doc.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not owner"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := RegisterUser(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func createProfileHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name       string `json:"name" binding:"required"`
		Address    string `json:"address"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Occupation string `json:"occupation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile := models.Profile{UserID: user.ID, Name: req.Name, Address: req.Address, Email: req.Email, Phone: req.Phone, Occupation: req.Occupation}
	if err := db.Create(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": profile.ID})
}

func getProfileHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var p models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id now).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// create refresh token
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// load user
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// create access token
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
