package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/hooks"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/model"
	ocmocks "github.com/glorpus-work/srcmirror/pkg/orchestrator/mocks"
)

const testBase = "http://mirror.example/ubuntu"

const mainSources = `Package: hello
Version: 2.10-3
Directory: pool/main/h/hello
Files:
 d41d8cd98f00b204e9800998ecf8427e 1024 hello_2.10.orig.tar.gz
 0cc175b9c0f1b6a831c399e269772661 2048 hello_2.10-3.debian.tar.xz
 92eb5ffee6ae2fec3ad71c777531578f 900 hello_2.10-3.dsc

Package: hello
Version: 2.9-1
Directory: pool/main/h/hello
Files:
 4a8a08f09d37b73795649038408b5f33 512 hello_2.9.orig.tar.gz
`

const universeSources = `Package: cowsay
Directory: pool/universe/c/cowsay
Files:
 8277e0910d750195b448797616e091ad 300 cowsay_3.03.orig.tar.gz
`

func workItem(dir, pkg, filename string) model.WorkItem {
	return model.WorkItem{
		Record:     model.ArchiveRecord{URL: testBase + "/pool/" + filename, Package: pkg, Filename: filename, Size: 10},
		LocalPath:  filepath.Join(dir, "out", filename),
		Package:    pkg,
		ExtractDir: filepath.Join(dir, "src", pkg),
	}
}

func TestLoadRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	idx := ocmocks.NewMockIndexSource(ctrl)
	gomock.InOrder(
		idx.EXPECT().FetchSources(gomock.Any(), testBase, "noble", "main").Return([]byte(mainSources), nil),
		idx.EXPECT().FetchSources(gomock.Any(), testBase, "noble", "universe").Return([]byte(universeSources), nil),
	)

	o := &Orchestrator{Index: idx}
	recs, err := o.LoadRecords(context.Background(), Source{
		BaseURL:    testBase,
		Dist:       "noble",
		Components: []string{"main", "universe"},
		Variant:    index.VariantMD5,
	})
	require.NoError(t, err)

	var names []string
	for _, r := range recs {
		names = append(names, r.Filename)
	}
	assert.Equal(t, []string{
		"hello_2.10.orig.tar.gz",
		"hello_2.10-3.debian.tar.xz",
		"hello_2.9.orig.tar.gz",
		"cowsay_3.03.orig.tar.gz",
	}, names)
	assert.Equal(t, testBase+"/pool/universe/c/cowsay/cowsay_3.03.orig.tar.gz", recs[3].URL)
}

func TestLoadRecords_LatestOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	idx := ocmocks.NewMockIndexSource(ctrl)
	idx.EXPECT().FetchSources(gomock.Any(), testBase, "noble", "main").Return([]byte(mainSources), nil)

	o := &Orchestrator{Index: idx}
	recs, err := o.LoadRecords(context.Background(), Source{
		BaseURL:    testBase,
		Dist:       "noble",
		Components: []string{"main"},
		LatestOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "2.10-3", r.Version)
	}
}

func TestLoadRecords_Errors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		idx := ocmocks.NewMockIndexSource(ctrl)
		idx.EXPECT().FetchSources(gomock.Any(), gomock.Any(), gomock.Any(), "main").Return(nil, errors.ErrIndexNotFound)

		o := &Orchestrator{Index: idx}
		_, err := o.LoadRecords(context.Background(), Source{BaseURL: testBase, Dist: "noble", Components: []string{"main", "universe"}})
		assert.ErrorIs(t, err, errors.ErrIndexNotFound)
	})

	t.Run("malformed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		idx := ocmocks.NewMockIndexSource(ctrl)
		idx.EXPECT().FetchSources(gomock.Any(), gomock.Any(), gomock.Any(), "main").
			Return([]byte("Package: x\nFiles:\n zz 1 x_1.tar.gz\n"), nil)

		o := &Orchestrator{Index: idx}
		recs, err := o.LoadRecords(context.Background(), Source{BaseURL: testBase, Dist: "noble", Components: []string{"main"}})
		assert.ErrorIs(t, err, errors.ErrMalformedIndexLine)
		assert.Nil(t, recs)
	})

	t.Run("no index source", func(t *testing.T) {
		o := &Orchestrator{}
		_, err := o.LoadRecords(context.Background(), Source{})
		assert.Error(t, err)
	})
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	// Present without verification, so it is skipped.
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "hello_2.10.orig.tar.gz"), []byte("x"), 0o644))

	ctrl := gomock.NewController(t)
	idx := ocmocks.NewMockIndexSource(ctrl)
	idx.EXPECT().FetchSources(gomock.Any(), testBase, "noble", "main").
		Return([]byte("Files:\n 0cc175b9c0f1b6a831c399e269772661 5 orphan_1.0.tar.gz\n\n"+mainSources), nil)

	var events []Event
	o := &Orchestrator{Index: idx, Hooks: Hooks{OnEvent: func(e Event) { events = append(events, e) }}}
	items, err := o.Plan(context.Background(),
		Source{BaseURL: testBase, Dist: "noble", Components: []string{"main"}},
		Options{OutDir: outDir, ExtractDir: filepath.Join(dir, "src"), PackageSource: model.PackageFromIndex},
	)
	require.NoError(t, err)

	require.Len(t, items, 3)

	// A file list outside any paragraph keeps its record with the package derived from the filename.
	assert.Equal(t, "orphan_1.0.tar.gz", items[0].Record.Filename)
	assert.Empty(t, items[0].Record.Package)
	assert.Equal(t, "orphan", items[0].Package)
	assert.Equal(t, filepath.Join(dir, "src", "orphan"), items[0].ExtractDir)

	assert.Equal(t, "hello_2.10-3.debian.tar.xz", items[1].Record.Filename)
	assert.Equal(t, "hello_2.9.orig.tar.gz", items[2].Record.Filename)
	assert.Equal(t, filepath.Join(outDir, "hello_2.9.orig.tar.gz"), items[2].LocalPath)
	assert.Equal(t, filepath.Join(dir, "src", "hello"), items[2].ExtractDir)

	require.NotEmpty(t, events)
	assert.Equal(t, PhaseIndexing, events[0].Phase)
	assert.Equal(t, PhasePlanning, events[len(events)-1].Phase)
}

func TestSync_Success(t *testing.T) {
	dir := t.TempDir()
	items := []model.WorkItem{workItem(dir, "a", "a_1.tar.gz"), workItem(dir, "b", "b_1.tar.xz")}

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	gomock.InOrder(
		dl.EXPECT().FetchToFile(gomock.Any(), download.ItemFromRecord(items[0].Record), items[0].LocalPath, gomock.Any()).Return(int64(10), nil),
		ex.EXPECT().Extract(gomock.Any(), items[0].LocalPath, items[0].ExtractDir).Return(nil),
		dl.EXPECT().FetchToFile(gomock.Any(), download.ItemFromRecord(items[1].Record), items[1].LocalPath, gomock.Any()).Return(int64(20), nil),
		ex.EXPECT().Extract(gomock.Any(), items[1].LocalPath, items[1].ExtractDir).Return(nil),
	)

	o := &Orchestrator{DL: dl, Extractor: ex}
	res, err := o.Sync(context.Background(), items, Options{OutDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	assert.Equal(t, Result{Downloaded: 2, Bytes: 30, Extracted: 2}, res)
	assert.DirExists(t, filepath.Join(dir, "out"))
}

func TestSync_FetchFailureAbortsRun(t *testing.T) {
	dir := t.TempDir()
	items := []model.WorkItem{
		workItem(dir, "a", "a_1.tar.gz"),
		workItem(dir, "b", "b_1.tar.gz"),
		workItem(dir, "c", "c_1.tar.gz"),
	}
	fetchErr := errors.NewFetchFailedError(items[1].Record.URL, errors.ErrUnexpectedStatus)

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), items[0].LocalPath, gomock.Any()).Return(int64(10), nil)
	ex.EXPECT().Extract(gomock.Any(), items[0].LocalPath, items[0].ExtractDir).Return(nil)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), items[1].LocalPath, gomock.Any()).Return(int64(0), fetchErr)
	// items[2] is never touched

	o := &Orchestrator{DL: dl, Extractor: ex}
	res, err := o.Sync(context.Background(), items, Options{OutDir: filepath.Join(dir, "out")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFetchFailed)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Extracted)
}

func TestSync_ExtractFailureContinues(t *testing.T) {
	dir := t.TempDir()
	items := []model.WorkItem{
		workItem(dir, "a", "a_1.tar.gz"),
		workItem(dir, "b", "b_1.tar.gz"),
		workItem(dir, "c", "c_1.tar.gz"),
	}
	extractErr := errors.NewExtractFailedError(items[0].LocalPath, errors.ErrNotTarArchive)

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(10), nil).Times(3)
	ex.EXPECT().Extract(gomock.Any(), items[0].LocalPath, gomock.Any()).Return(extractErr)
	ex.EXPECT().Extract(gomock.Any(), items[1].LocalPath, gomock.Any()).Return(nil)
	ex.EXPECT().Extract(gomock.Any(), items[2].LocalPath, gomock.Any()).Return(errors.NewExtractFailedError(items[2].LocalPath, errors.ErrPathTraversal))

	o := &Orchestrator{DL: dl, Extractor: ex}
	res, err := o.Sync(context.Background(), items, Options{OutDir: filepath.Join(dir, "out")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtractFailed)
	assert.ErrorIs(t, err, errors.ErrNotTarArchive)
	assert.ErrorIs(t, err, errors.ErrPathTraversal)
	assert.NotErrorIs(t, err, errors.ErrFetchFailed)

	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, []string{items[0].LocalPath, items[2].LocalPath}, res.Failed)
}

func TestSync_DeleteAfterExtract(t *testing.T) {
	dir := t.TempDir()
	ok := workItem(dir, "a", "a_1.tar.gz")
	bad := workItem(dir, "b", "b_1.tar.gz")

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ download.Item, dest string, _ download.ProgressFunc) (int64, error) {
			return 4, os.WriteFile(dest, []byte("data"), 0o644)
		}).Times(2)
	ex.EXPECT().Extract(gomock.Any(), ok.LocalPath, gomock.Any()).Return(nil)
	ex.EXPECT().Extract(gomock.Any(), bad.LocalPath, gomock.Any()).Return(errors.NewExtractFailedError(bad.LocalPath, errors.ErrNotTarArchive))

	o := &Orchestrator{DL: dl, Extractor: ex}
	_, err := o.Sync(context.Background(), []model.WorkItem{ok, bad}, Options{OutDir: filepath.Join(dir, "out"), DeleteAfterExtract: true})
	require.Error(t, err)

	assert.NoFileExists(t, ok.LocalPath)
	// A failed extraction keeps its archive.
	assert.FileExists(t, bad.LocalPath)
}

func TestSync_NoExtract(t *testing.T) {
	dir := t.TempDir()
	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(7), nil)

	o := &Orchestrator{DL: dl}
	res, err := o.Sync(context.Background(), []model.WorkItem{workItem(dir, "a", "a_1.tar.gz")}, Options{OutDir: filepath.Join(dir, "out"), NoExtract: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Downloaded: 1, Bytes: 7}, res)
}

func TestSync_Progress(t *testing.T) {
	dir := t.TempDir()
	it := workItem(dir, "a", "a_1.tar.gz")

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ download.Item, _ string, progress download.ProgressFunc) (int64, error) {
			progress(3)
			progress(10)
			return 10, nil
		})
	ex.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	var seen []int64
	o := &Orchestrator{DL: dl, Extractor: ex, Hooks: Hooks{OnProgress: func(item model.WorkItem, written int64) {
		assert.Equal(t, it.Record.Filename, item.Record.Filename)
		seen = append(seen, written)
	}}}
	_, err := o.Sync(context.Background(), []model.WorkItem{it}, Options{OutDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 10}, seen)
}

func TestSync_Hooks(t *testing.T) {
	dir := t.TempDir()
	a := workItem(dir, "a", "a_1.tar.gz")
	a.Record.Version = "1-1"
	b := workItem(dir, "b", "b_1.tar.gz")

	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)
	runner := ocmocks.NewMockHookRunner(ctrl)
	dl.EXPECT().FetchToFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(2)
	ex.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		runner.EXPECT().Execute(hooks.PostExtract, hooks.HookContext{
			PackageName:    "a",
			PackageVersion: "1-1",
			ArchivePath:    a.LocalPath,
			ExtractDir:     a.ExtractDir,
		}).Return(nil),
		runner.EXPECT().Execute(hooks.PostExtract, gomock.Any()).Return(stderrors.New("boom")),
		runner.EXPECT().Execute(hooks.PostSync, gomock.Any()).DoAndReturn(func(_ hooks.HookType, ctx hooks.HookContext) error {
			assert.Equal(t, 2, ctx.Vars["downloaded"])
			assert.Equal(t, 1, ctx.Vars["extracted"])
			assert.Equal(t, 1, ctx.Vars["failed"])
			return nil
		}),
	)

	o := &Orchestrator{DL: dl, Extractor: ex, Scripts: runner}
	res, err := o.Sync(context.Background(), []model.WorkItem{a, b}, Options{OutDir: filepath.Join(dir, "out")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{b.LocalPath}, res.Failed)
}

func TestSync_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctrl := gomock.NewController(t)
	dl := ocmocks.NewMockDownloader(ctrl)
	ex := ocmocks.NewMockExtractor(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := &Orchestrator{DL: dl, Extractor: ex}
	_, err := o.Sync(ctx, []model.WorkItem{workItem(dir, "a", "a_1.tar.gz")}, Options{OutDir: filepath.Join(dir, "out")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSync_NotConfigured(t *testing.T) {
	o := &Orchestrator{}
	_, err := o.Sync(context.Background(), nil, Options{OutDir: t.TempDir()})
	assert.Error(t, err)
}

func TestExtractLocal(t *testing.T) {
	archiveDir := t.TempDir()
	outDir := t.TempDir()
	for _, name := range []string{"zlib_1.3.orig.tar.gz", "bash_5.2.orig.tar.xz", "bash_5.2-1.dsc", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(archiveDir, name), []byte("x"), 0o644))
	}

	ctrl := gomock.NewController(t)
	ex := ocmocks.NewMockExtractor(ctrl)
	gomock.InOrder(
		ex.EXPECT().Extract(gomock.Any(), filepath.Join(archiveDir, "bash_5.2.orig.tar.xz"), filepath.Join(outDir, "bash")).
			Return(errors.NewExtractFailedError("bash", errors.ErrNotTarArchive)),
		ex.EXPECT().Extract(gomock.Any(), filepath.Join(archiveDir, "zlib_1.3.orig.tar.gz"), filepath.Join(outDir, "zlib")).Return(nil),
	)

	o := &Orchestrator{Extractor: ex}
	res, err := o.ExtractLocal(context.Background(), archiveDir, outDir)
	assert.ErrorIs(t, err, errors.ErrExtractFailed)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, []string{filepath.Join(archiveDir, "bash_5.2.orig.tar.xz")}, res.Failed)
}

func TestExtractLocal_UnusablePackageName(t *testing.T) {
	archiveDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "src")
	for _, name := range []string{".._1.0.tar.gz", "_1.0.tar.gz", "ok_1.0.tar.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(archiveDir, name), []byte("x"), 0o644))
	}

	ctrl := gomock.NewController(t)
	ex := ocmocks.NewMockExtractor(ctrl)
	ex.EXPECT().Extract(gomock.Any(), filepath.Join(archiveDir, "ok_1.0.tar.gz"), filepath.Join(outDir, "ok")).Return(nil)

	o := &Orchestrator{Extractor: ex}
	res, err := o.ExtractLocal(context.Background(), archiveDir, outDir)
	assert.ErrorIs(t, err, errors.ErrExtractFailed)
	assert.ErrorIs(t, err, errors.ErrInvalidRecord)
	assert.Equal(t, 1, res.Extracted)
	assert.ElementsMatch(t, []string{
		filepath.Join(archiveDir, ".._1.0.tar.gz"),
		filepath.Join(archiveDir, "_1.0.tar.gz"),
	}, res.Failed)
}
