package solv

/*
#cgo LDFLAGS: -lsolv -lsolvext
#include <stdlib.h>
#include <solv/pool.h>
#include <solv/repo.h>
#include <solv/repo_deb.h>
#include <solv/solver.h>
#include <solv/solverdebug.h>
#include <solv/transaction.h>
#include <solv/selection.h>
#include <solv/chksum.h>
#include <solv/knownid.h>

static Repo *solv_repo_create(Pool *pool, const char *name) {
	return repo_create(pool, name);
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/debstrap/debstrap/internal/bserror"
)

// Pool owns every sub-repo loaded into it. It must be freed exactly
// once, after every Repo, Solver, and Transaction created from it have
// been freed.
type Pool struct {
	ptr    *C.Pool
	repos  []*Repo
	closed bool
}

// NewPool creates a solver pool and sets its system architecture, per
// spec §4.3 step 1 ("Create a solver pool; set system architecture
// attributes on the pool").
func NewPool(arch string) *Pool {
	p := C.pool_create()
	cArch := C.CString(arch)
	defer C.free(unsafe.Pointer(cArch))
	C.pool_setarch(p, cArch)
	return &Pool{ptr: p}
}

// Close releases the pool. Every Repo created from it must already be
// logically unused (repos are freed along with the pool by libsolv
// itself; this just enforces the ownership order documented on Pool).
func (p *Pool) Close() {
	if p.closed {
		return
	}
	C.pool_free(p.ptr)
	p.closed = true
}

// Repo is a sub-repository of a Pool, owning the PackageRecords loaded
// from one PackagesIndex.
type Repo struct {
	pool *Pool
	ptr  *C.Repo
}

// AddRepo creates a sub-repository and bulk-loads it from a Debian
// Packages file on disk, per spec §4.3 step 2 ("For each index, create
// a sub-repository and bulk-load all PackageRecords... streaming their
// stanzas through the solver's add-repo interface").
func (p *Pool) AddRepo(name, packagesPath string) (*Repo, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cRepo := C.solv_repo_create(p.ptr, cName)

	cPath := C.CString(packagesPath)
	defer C.free(unsafe.Pointer(cPath))
	cMode := C.CString("r")
	defer C.free(unsafe.Pointer(cMode))
	fp := C.fopen(cPath, cMode)
	if fp == nil {
		return nil, bserror.Wrapf(bserror.MalformedIndex, packagesPath, "unable to open packages file for libsolv")
	}
	defer C.fclose(fp)

	if rc := C.repo_add_debpackages(cRepo, fp, C.REPO_REUSE_REPODATA); rc != 0 {
		return nil, bserror.Wrapf(bserror.MalformedIndex, packagesPath, "repo_add_debpackages failed: %d", int(rc))
	}

	repo := &Repo{pool: p, ptr: cRepo}
	p.repos = append(p.repos, repo)
	return repo, nil
}

// Freeze computes the pool's what-provides tables, per spec §4.3 step 3
// ("Mark the pool as 'ready'"). Must be called after every Repo has been
// loaded and before building a Job.
func (p *Pool) Freeze() {
	C.pool_createwhatprovides(p.ptr)
}

// Job is the seed set of package names to install, expanded with
// --include/--include-files, per spec §4.3 step 4.
type Job struct {
	pool  *Pool
	queue C.Queue
}

// NewJob builds an install job for the given package names. Ambiguous
// names are resolved by libsolv's standard provider tie-break (highest
// version, then repository priority) via
// SELECTION_NAME|SELECTION_PROVIDES|SELECTION_FLAT.
func (p *Pool) NewJob(names []string, installRecommends bool) (*Job, error) {
	var queue C.Queue
	C.queue_init(&queue)

	for _, name := range names {
		cName := C.CString(name)
		var sel C.Queue
		C.queue_init(&sel)
		flags := C.int(C.SELECTION_NAME | C.SELECTION_PROVIDES | C.SELECTION_FLAT)
		matched := C.selection_make(p.ptr, &sel, cName, flags)
		C.free(unsafe.Pointer(cName))
		if matched == 0 {
			C.queue_free(&sel)
			C.queue_free(&queue)
			return nil, bserror.Wrapf(bserror.Unsolvable, name, "no package provides %q", name)
		}
		for i := 0; i < int(sel.count); i++ {
			C.queue_push(&queue, C.int(selIndex(&sel, i)))
		}
		C.queue_free(&sel)
	}

	return &Job{pool: p, queue: queue}, nil
}

func selIndex(q *C.Queue, i int) C.int {
	base := uintptr(unsafe.Pointer(q.elements))
	return *(*C.int)(unsafe.Pointer(base + uintptr(i)*unsafe.Sizeof(C.int(0))))
}

func (j *Job) free() {
	C.queue_free(&j.queue)
}

// Solver wraps a solver_create/solver_free lifecycle. It is created
// from a Pool and consumed by Solve, which builds the Transaction.
type Solver struct {
	pool *Pool
	ptr  *C.Solver
}

// NewSolver creates the solver, per spec §4.3 step 5.
func (p *Pool) NewSolver() *Solver {
	return &Solver{pool: p, ptr: C.solver_create(p.ptr)}
}

// SetBestObeyPolicy sets SOLVER_FLAG_BEST_OBEY_POLICY, matching the
// original implementation's solver configuration (original_source
// solv/mod.rs::calculate_deps).
func (s *Solver) SetBestObeyPolicy(v bool) {
	flag := 0
	if v {
		flag = 1
	}
	C.solver_set_flag(s.ptr, C.SOLVER_FLAG_BEST_OBEY_POLICY, C.int(flag))
}

// SetIgnoreRecommended controls whether Recommends is treated as
// install-by-default, per the install_recommends config policy (spec §9).
func (s *Solver) SetIgnoreRecommended(ignore bool) {
	flag := 0
	if ignore {
		flag = 1
	}
	C.solver_set_flag(s.ptr, C.SOLVER_FLAG_IGNORE_RECOMMENDED, C.int(flag))
}

// Solve consumes the Job and, on success, returns a Transaction. On
// conflict it returns an Unsolvable error carrying the solver's
// problem/solution dump verbatim, per spec §4.3 step 5 and §7.
func (s *Solver) Solve(job *Job) (*Transaction, error) {
	defer job.free()

	jobQueue := job.queue
	// mark every queued solvable for install (SOLVER_INSTALL|SOLVER_SOLVABLE)
	var installJobs C.Queue
	C.queue_init(&installJobs)
	for i := 0; i < int(jobQueue.count); i++ {
		id := selIndex(&jobQueue, i)
		C.queue_push2(&installJobs, C.SOLVER_INSTALL|C.SOLVER_SOLVABLE, id)
	}
	defer C.queue_free(&installJobs)

	if problems := C.solver_solve(s.ptr, &installJobs); problems != 0 {
		n := int(C.solver_problem_count(s.ptr))
		var msgs []string
		for i := 1; i <= n; i++ {
			cMsg := C.solver_problem2str(s.ptr, C.Id(i))
			msgs = append(msgs, C.GoString(cMsg))
		}
		return nil, bserror.NewUnsolvable(msgs)
	}

	trans := C.solver_create_transaction(s.ptr)
	C.transaction_order(trans, 0)
	return &Transaction{solver: s, ptr: trans}, nil
}

func (s *Solver) free() {
	C.solver_free(s.ptr)
}

// Transaction is the solver's ordered install set, consumed exactly
// once by Steps.
type Transaction struct {
	solver *Solver
	ptr    *C.Transaction
}

// Step is one INSTALL step of the transaction: the package name,
// version, architecture, repo-relative archive path, and sha256 digest
// of the solvable libsolv picked.
type Step struct {
	Name         string
	Version      string
	Architecture string
	Path         string
	SHA256       string
}

// Steps iterates the transaction's ordered steps, retaining only
// INSTALL steps, per spec §4.3 step 6. Each step corresponds to one
// PlanEntry.
func (t *Transaction) Steps() []Step {
	var out []Step
	n := int(t.ptr.steps.count)
	for i := 0; i < n; i++ {
		p := selIndex(&t.ptr.steps, i)
		typ := C.transaction_type(t.ptr, p, C.SOLVER_TRANSACTION_SHOW_ACTIVE)
		if typ != C.SOLVER_TRANSACTION_INSTALL && typ != C.SOLVER_TRANSACTION_MULTIINSTALL {
			continue
		}
		pool := t.solver.pool.ptr
		s := C.pool_id2solvable(pool, p)

		name := C.GoString(C.pool_id2str(pool, s.name))
		evr := C.GoString(C.pool_id2str(pool, s.evr))
		arch := C.GoString(C.pool_id2str(pool, s.arch))

		mediadir := C.GoString(C.solvable_lookup_str(s, C.SOLVABLE_MEDIADIR))
		mediafile := C.GoString(C.solvable_lookup_str(s, C.SOLVABLE_MEDIAFILE))
		path := mediafile
		if mediadir != "" {
			path = mediadir + "/" + mediafile
		}

		var sumType C.Id
		cSum := C.solvable_lookup_bin_checksum(s, C.SOLVABLE_CHECKSUM, &sumType)
		sha256 := ""
		if cSum != nil && sumType == C.REPOKEY_TYPE_SHA256 {
			sha256 = C.GoString(C.pool_bin2hex(pool, cSum, 32))
		}

		out = append(out, Step{Name: name, Version: evr, Architecture: arch, Path: path, SHA256: sha256})
	}
	return out
}

// Free releases the transaction and its solver. Call after Steps.
func (t *Transaction) Free() {
	C.transaction_free(t.ptr)
	t.solver.free()
}

// WritePackagesFile is a small helper used by the solver driver: it
// streams a PackagesIndex's raw control bytes to a temp file so
// AddRepo (which reads via a C FILE*) can consume it. Returned path
// must be removed by the caller.
func WritePackagesFile(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "Packages-*.control")
	if err != nil {
		return "", fmt.Errorf("creating temp packages file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("writing temp packages file: %w", err)
	}
	return f.Name(), nil
}
