package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/repository"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

const scenarioDocument = `{{task status=""}}Ping {{mention ref="U1"/}} {{date date="2024/01/01 00:00"/}}{{/task}}`

const twoTasks = `{{task reference="Sandbox.T1"}}One{{/task}}

{{task reference="Sandbox.T2"}}Two{{/task}}`

// MacroSyncTestSuite covers the markup to record direction.
type MacroSyncTestSuite struct {
	suite.Suite
	h *harness
}

func (suite *MacroSyncTestSuite) SetupTest() {
	suite.h = newHarness(suite.T())
	suite.h.grant(suite.T(), alice, "Sandbox/**", models.RoleOwner)
}

func (suite *MacroSyncTestSuite) createDoc(ctx context.Context, ref, text string) reference.Reference {
	docRef := reference.Parse(ref)
	_, err := suite.h.docs.Create(ctx, docRef, markup.SyntaxXWiki, text)
	suite.Require().NoError(err)
	return docRef
}

// newDoc builds an unsaved xwiki document.
func (suite *MacroSyncTestSuite) newDoc(ref reference.Reference, text string) *dto.Document {
	content, err := markup.Parse(text, markup.SyntaxXWiki)
	suite.Require().NoError(err)
	return &dto.Document{Reference: ref, Syntax: markup.SyntaxXWiki, Content: content}
}

// reconcileText loads ref, replaces its content with text and reconciles it
// without saving.
func (suite *MacroSyncTestSuite) reconcileText(ctx context.Context, ref reference.Reference, text string) SyncReport {
	doc, err := suite.h.docs.Get(ctx, ref)
	suite.Require().NoError(err)
	doc.Content, err = markup.Parse(text, doc.Syntax)
	suite.Require().NoError(err)
	return suite.h.macroSync.Reconcile(ctx, doc)
}

func (suite *MacroSyncTestSuite) kind(report SyncReport, ref string) ActionKind {
	action, ok := report.Action(ref)
	suite.Require().True(ok, "no action for %s", ref)
	return action.Kind
}

func (suite *MacroSyncTestSuite) TestFirstTaskIsCreated() {
	h := suite.h
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", scenarioDocument)

	record := h.record(suite.T(), "Sandbox.Task_0")
	suite.Equal("U1", record.Assignee)
	suite.Equal("Sandbox.WebHome", record.Owner)
	suite.Equal(alice, record.Reporter)
	suite.Equal(1, record.Number)
	suite.Equal("Ping", record.Name)
	suite.Require().NotNil(record.DueDate)
	suite.True(record.DueDate.Equal(date(2024, 1, 1, 0, 0)))
	suite.True(record.CreateDate.Equal(date(2024, 3, 1, 9, 30)))
	suite.Nil(record.CompleteDate)
	suite.Contains(record.Render, `{{task reference="Sandbox.Task_0"`)

	content := h.content(suite.T(), docRef.String())
	suite.Contains(content, `reference="Sandbox.Task_0"`, "the generated reference is saved with the document")
	suite.Contains(content, `reporter="XWiki.Alice"`)
}

func (suite *MacroSyncTestSuite) TestIdempotence() {
	h := suite.h
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", scenarioDocument+"\n\n"+twoTasks)
	before := h.record(suite.T(), "Sandbox.T1")

	saves := 0
	h.bus.SubscribeTaskSaving(func(context.Context, *events.TaskSavingPayload) error {
		saves++
		return nil
	})

	stored := h.content(suite.T(), docRef.String())
	for i := 0; i < 2; i++ {
		report := suite.reconcileText(h.ctx, docRef, stored)
		suite.Equal(3, report.Count(ActionUnchanged))
		suite.False(report.Extraction.Mutated)
	}

	suite.Zero(saves, "an unchanged document writes no records")
	suite.Equal(int64(3), h.countTasks(suite.T()))
	after := h.record(suite.T(), "Sandbox.T1")
	suite.True(before.UpdatedAt.Equal(after.UpdatedAt))
}

func (suite *MacroSyncTestSuite) TestRemovedTaskIsDeleted() {
	h := suite.h
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", twoTasks)

	_, err := h.docs.Edit(h.ctx, docRef, `{{task reference="Sandbox.T1"}}One{{/task}}`, "drop T2")
	suite.Require().NoError(err)

	_, err = h.taskRepo.FindByReference(h.ctx, "Sandbox.T2")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
	suite.Equal("Sandbox.WebHome", h.record(suite.T(), "Sandbox.T1").Owner)
}

func (suite *MacroSyncTestSuite) TestRemovedTaskDependsOnRights() {
	h := suite.h
	h.grant(suite.T(), bob, "Sandbox/**", models.RoleEditor)
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", twoTasks)

	report := suite.reconcileText(h.as(bob), docRef, `{{task reference="Sandbox.T1"}}One{{/task}}`)

	suite.Equal(ActionDisowned, suite.kind(report, "Sandbox.T2"))
	suite.Equal(ActionUnchanged, suite.kind(report, "Sandbox.T1"))
	suite.Equal(ActionDisowned, report.Actions[0].Kind, "removed tasks are handled first")

	disowned := h.record(suite.T(), "Sandbox.T2")
	suite.Empty(disowned.Owner)
	suite.Equal("Two", disowned.Name, "the record keeps its data")
}

func (suite *MacroSyncTestSuite) TestRemovedTaskWithoutRights() {
	h := suite.h
	h.grant(suite.T(), "XWiki.Carol", "Sandbox/T1", models.RoleEditor)
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", twoTasks)

	report := suite.reconcileText(h.as("XWiki.Carol"), docRef, `{{task reference="Sandbox.T1"}}One{{/task}}`)

	suite.Equal(ActionSkippedNoRights, suite.kind(report, "Sandbox.T2"))
	suite.Equal("Sandbox.WebHome", h.record(suite.T(), "Sandbox.T2").Owner)
}

func (suite *MacroSyncTestSuite) TestRemovedTaskOwnedElsewhere() {
	h := suite.h
	docRef := suite.createDoc(h.ctx, "Sandbox.WebHome", twoTasks)

	moved := h.record(suite.T(), "Sandbox.T2")
	moved.Owner = "Sandbox.Other"
	suite.Require().NoError(h.taskRepo.Save(h.ctx, moved))

	report := suite.reconcileText(h.ctx, docRef, `{{task reference="Sandbox.T1"}}One{{/task}}`)

	suite.Equal(ActionSkippedForeignOwner, suite.kind(report, "Sandbox.T2"))
	suite.Equal("Sandbox.Other", h.record(suite.T(), "Sandbox.T2").Owner)
}

func (suite *MacroSyncTestSuite) TestOwnershipExclusivity() {
	h := suite.h
	suite.createDoc(h.ctx, "Sandbox.A", `{{task reference="Sandbox.Shared"}}From A{{/task}}`)
	docB := suite.createDoc(h.ctx, "Sandbox.B", `{{task reference="Sandbox.Shared"}}From B{{/task}}`)

	record := h.record(suite.T(), "Sandbox.Shared")
	suite.Equal("Sandbox.A", record.Owner)
	suite.Equal("From A", record.Name)

	report := suite.reconcileText(h.ctx, docB, `{{task reference="Sandbox.Shared"}}Changed by B{{/task}}`)
	suite.Equal(ActionSkippedForeignOwner, suite.kind(report, "Sandbox.Shared"))

	report = suite.reconcileText(h.ctx, reference.Parse("Sandbox.A"), `{{task reference="Sandbox.Shared"}}Changed by A{{/task}}`)
	suite.Equal(ActionUpdated, suite.kind(report, "Sandbox.Shared"))
	suite.Equal("Changed by A", h.record(suite.T(), "Sandbox.Shared").Name)
}

func (suite *MacroSyncTestSuite) TestDisownedTaskIsReclaimed() {
	h := suite.h
	suite.createDoc(h.ctx, "Sandbox.A", `{{task reference="Sandbox.Shared"}}Orphan{{/task}}`)
	orphan := h.record(suite.T(), "Sandbox.Shared")
	orphan.Owner = ""
	suite.Require().NoError(h.taskRepo.Save(h.ctx, orphan))

	suite.createDoc(h.ctx, "Sandbox.B", `{{task reference="Sandbox.Shared"}}Adopted{{/task}}`)

	record := h.record(suite.T(), "Sandbox.Shared")
	suite.Equal("Sandbox.B", record.Owner)
	suite.Equal("Adopted", record.Name)
}

func (suite *MacroSyncTestSuite) TestNoEditRightSkipsTask() {
	h := suite.h
	h.grant(suite.T(), bob, "Sandbox/**", models.RoleViewer)
	h.grant(suite.T(), bob, "Bob/**", models.RoleOwner)

	doc := suite.newDoc(reference.Parse("Bob.Notes"), `{{task reference="Sandbox.Locked"}}Read only{{/task}}`)
	report := h.macroSync.Reconcile(h.as(bob), doc)

	suite.Equal(ActionSkippedNoRights, suite.kind(report, "Sandbox.Locked"))
	suite.Zero(h.countTasks(suite.T()))
}

func (suite *MacroSyncTestSuite) TestDuplicateReferenceInOneDocument() {
	h := suite.h
	suite.createDoc(h.ctx, "Sandbox.WebHome", `{{task reference="Sandbox.Dup"}}first{{/task}}

{{task reference="Sandbox.Dup"}}second{{/task}}`)

	suite.Equal("first", h.record(suite.T(), "Sandbox.Dup").Name)

	report := suite.reconcileText(h.ctx, reference.Parse("Sandbox.WebHome"), `{{task reference="Sandbox.Dup"}}first{{/task}}

{{task reference="Sandbox.Dup"}}second{{/task}}`)
	suite.Equal(1, report.Count(ActionSkippedDuplicate))
	suite.Equal(1, report.Count(ActionUnchanged))
}

func (suite *MacroSyncTestSuite) TestFailureDoesNotStopThePass() {
	h := suite.h
	failing := &failingTaskRepo{GormTaskRepository: h.taskRepo, failOn: "Sandbox.Bad", err: errors.New("disk error")}
	ms := NewMacroSync(h.extractor, h.docs, h.tasks, failing, h.perms, h.proc, zerolog.Nop())

	doc := suite.newDoc(sandboxHome, `{{task reference="Sandbox.Bad"}}bad{{/task}}

{{task reference="Sandbox.Good"}}good{{/task}}`)
	report := ms.Reconcile(h.ctx, doc)

	bad, _ := report.Action("Sandbox.Bad")
	suite.Equal(ActionFailed, bad.Kind)
	suite.ErrorIs(bad.Err, failing.err)
	suite.Equal(ActionCreated, suite.kind(report, "Sandbox.Good"))
	suite.Equal("good", h.record(suite.T(), "Sandbox.Good").Name)
}

func (suite *MacroSyncTestSuite) TestSkippedWhileReconciling() {
	h := suite.h
	doc := suite.newDoc(sandboxHome, `{{task}}new{{/task}}`)

	err := h.macroSync.OnDocumentSaving(session.WithReconciling(h.ctx), &events.DocumentSavingPayload{Document: doc})
	suite.NoError(err)

	_, ok := markup.FirstMacro(doc.Content, "task").Params.Get("reference")
	suite.False(ok)
	suite.Zero(h.countTasks(suite.T()))
}

func (suite *MacroSyncTestSuite) TestMissingPreviousRevision() {
	h := suite.h
	doc := suite.newDoc(sandboxHome, `{{task reference="Sandbox.T1"}}One{{/task}}`)
	doc.Version = 42

	report := h.macroSync.Reconcile(h.ctx, doc)
	suite.Equal(ActionCreated, suite.kind(report, "Sandbox.T1"))
}

func (suite *MacroSyncTestSuite) TestEmptyDocumentIsANoOp() {
	h := suite.h
	report := h.macroSync.Reconcile(h.ctx, suite.newDoc(sandboxHome, "Just text"))
	suite.Empty(report.Actions)
	suite.NotEmpty(report.PassID)
}

func (suite *MacroSyncTestSuite) TestDoneTaskGetsCompleteDate() {
	h := suite.h
	suite.createDoc(h.ctx, "Sandbox.WebHome", `{{task reference="Sandbox.T1" status="done"}}One{{/task}}`)

	record := h.record(suite.T(), "Sandbox.T1")
	suite.Require().NotNil(record.CompleteDate)
	suite.True(record.CompleteDate.Equal(date(2024, 3, 1, 9, 30)))

	report := suite.reconcileText(h.ctx, sandboxHome, `{{task reference="Sandbox.T1" status="open"}}One{{/task}}`)
	suite.Equal(ActionUpdated, suite.kind(report, "Sandbox.T1"))
	suite.Nil(h.record(suite.T(), "Sandbox.T1").CompleteDate)
}

func TestMacroSyncTestSuite(t *testing.T) {
	suite.Run(t, new(MacroSyncTestSuite))
}

// failingTaskRepo fails lookups of one reference.
type failingTaskRepo struct {
	*repository.GormTaskRepository
	failOn string
	err    error
}

func (r *failingTaskRepo) FindByReference(ctx context.Context, ref string) (*models.Task, error) {
	if ref == r.failOn {
		return nil, r.err
	}
	return r.GormTaskRepository.FindByReference(ctx, ref)
}
