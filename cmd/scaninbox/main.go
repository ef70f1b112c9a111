// Command scaninbox processes a directory of policy documents: each file is
// scanned through the extraction pipeline, recorded as a PolicyDocument and,
// when the scan yields a policy number with enough text to trust, confirmed
// into a Policy. Supports one-shot and watch mode.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chronyx/models"
	"chronyx/pkg/docscan"
	"chronyx/pkg/storage"
)

// Global DB handle for helper funcs
var db *gorm.DB

// Document store; nil in dry-run mode.
var docStore storage.Store

// global flags (parsed in main)
var (
	verbose  bool
	dryRun   bool
	autoSave bool
)

// preload cache of already-recorded documents keyed by filename.
type preloadState struct {
	docsByFile map[string]*models.PolicyDocument
	mu         sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{docsByFile: make(map[string]*models.PolicyDocument, 1024)}
}

func (ps *preloadState) get(name string) (*models.PolicyDocument, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	d, ok := ps.docsByFile[name]
	return d, ok
}

func (ps *preloadState) put(d *models.PolicyDocument) {
	ps.mu.Lock()
	ps.docsByFile[d.FileName] = d
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func main() {
	_ = godotenv.Load()
	defaultDir := os.Getenv("SCAN_INBOX")
	if defaultDir == "" {
		defaultDir = "inbox"
	}
	dirFlag := flag.String("dir", defaultDir, "directory to scan for policy documents")
	userID := flag.Uint("user-id", 0, "User ID to assign documents to (if omitted uses admin)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	docBase := flag.String("doc-base", "documents", "base directory for stored document files")
	flag.BoolVar(&dryRun, "dry-run", false, "Scan and print extracted fields without any DB writes")
	flag.BoolVar(&autoSave, "auto-confirm", false, "Create a Policy when extraction finds a policy number and text is not sparse")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	var store docscan.Uploader
	if !dryRun {
		db = mustInitDBFromEnv()
		docStore = storage.NewLocalStore(*docBase, "/documents")
		store = docStore
	}
	cfg := docscan.DefaultConfig()
	if lang := os.Getenv("TESSERACT_LANG"); lang != "" {
		cfg.Language = lang
	}
	scanner := docscan.NewScanner(cfg, nil, nil, store)

	var user models.User
	if !dryRun {
		user = resolveUser(*userID)
	}
	ps := preloadAll(user)
	w := effectiveWorkers(*workers)

	files := listDocumentFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), w)
	runWorkerPool(scanner, *dirFlag, user, ps, files, w)

	if *watch {
		if err := watchDirectory(scanner, *dirFlag, user, ps, w); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadAll fetches existing document records to minimize per-file queries.
func preloadAll(user models.User) *preloadState {
	ps := newPreloadState()
	if db == nil {
		return ps
	}
	var docs []models.PolicyDocument
	if err := db.Where("user_id = ?", user.ID).Find(&docs).Error; err == nil {
		for i := range docs {
			d := docs[i]
			ps.docsByFile[d.FileName] = &d
		}
	}
	log.Printf("Preloaded: documents=%d", len(ps.docsByFile))
	return ps
}

// resolveUser finds the owner either by explicit id or by admin username.
func resolveUser(id uint) models.User {
	var u models.User
	if id != 0 {
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u
	}
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return u
}

func listDocumentFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

func watchDirectory(scanner *docscan.Scanner, dir string, user models.User, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create || ev.Op&fsnotify.Write == fsnotify.Write {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(scanner, dir, user, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(scanner *docscan.Scanner, dir string, user models.User, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(scanner, dir, name, user, ps)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// storePreview persists the first-page thumbnail next to the document and
// returns its object path. The temp file is removed either way; in dry-run
// mode the preview is simply discarded.
func storePreview(previewPath, objectPath string) string {
	if previewPath == "" {
		return ""
	}
	defer os.Remove(previewPath)
	if docStore == nil {
		return ""
	}
	data, err := os.ReadFile(previewPath)
	if err != nil {
		log.Printf("ERROR read preview: %v", err)
		return ""
	}
	p := storage.PreviewObjectPath(objectPath)
	if _, err := docStore.Upload(p, data); err != nil {
		log.Printf("ERROR store preview: %v", err)
		return ""
	}
	return p
}

// processSingleFile scans one document and records the outcome. Idempotent:
// a filename already recorded for the user is skipped.
func processSingleFile(scanner *docscan.Scanner, dir, name string, user models.User, ps *preloadState) {
	if _, ok := ps.get(name); ok {
		logV("SKIP document exists %s", name)
		return
	}
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR read %s: %v", name, err)
		return
	}

	uid := strconv.FormatUint(uint64(user.ID), 10)
	var objectPath string
	if !dryRun {
		objectPath = storage.ObjectPath(uid, name)
	}
	ext, err := scanner.Scan(context.Background(), docscan.Request{
		Filename:  name,
		Data:      data,
		UserID:    uid,
		StorePath: objectPath,
	})
	if err != nil {
		log.Printf("SCAN fail %s: %v", name, err)
		if !dryRun {
			doc := models.PolicyDocument{UserID: user.ID, FileName: name, Failed: true, FailedReason: err.Error()}
			if derr := db.Create(&doc).Error; derr == nil {
				ps.put(&doc)
			}
		}
		return
	}
	previewPath := storePreview(ext.PreviewPath, objectPath)
	log.Printf("SCAN %s method=%s pages=%d chars=%d sparse=%v number=%q provider=%q",
		name, ext.Method, ext.Pages, ext.Chars, ext.Sparse, ext.Data.PolicyNumber, ext.Data.Provider)
	if dryRun {
		return
	}

	doc := models.PolicyDocument{
		UserID: user.ID, FileName: name, StorePath: objectPath, PreviewPath: previewPath,
		Method: ext.Method, Pages: ext.Pages, Chars: ext.Chars, Sparse: ext.Sparse,
	}
	if err := db.Create(&doc).Error; err != nil {
		log.Printf("ERROR create document %s: %v", name, err)
		return
	}
	ps.put(&doc)

	if autoSave && ext.Data.PolicyNumber != "" && !ext.Sparse {
		d := ext.Data
		p := models.Policy{
			UserID: user.ID, DocumentID: &doc.ID,
			PolicyName: d.PolicyName, PolicyNumber: d.PolicyNumber, Provider: d.Provider,
			PolicyType: d.PolicyType, PremiumAmount: d.PremiumAmount, PremiumFrequency: d.PremiumFrequency,
			SumAssured: d.SumAssured, StartDate: d.StartDate, RenewalDate: d.RenewalDate, InsuredName: d.InsuredName,
		}
		if err := db.Create(&p).Error; err != nil {
			log.Printf("ERROR create policy for %s: %v", name, err)
		} else {
			log.Printf("POLICY id=%d number=%s file=%s", p.ID, p.PolicyNumber, name)
		}
	}

	// Processed files move out of the inbox so they are handled only once.
	if err := moveToProcessed(dir, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	}
}

// moveToProcessed moves a file into <dir>/processed/<name>, attempting an
// atomic rename first and falling back to copy+remove across filesystems.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
