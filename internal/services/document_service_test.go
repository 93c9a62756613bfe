package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
)

type DocumentServiceTestSuite struct {
	suite.Suite
	h *harness
}

func (suite *DocumentServiceTestSuite) SetupTest() {
	suite.h = newHarness(suite.T())
	suite.h.grant(suite.T(), alice, "**", models.RoleOwner)
}

func (suite *DocumentServiceTestSuite) TestCreate() {
	h := suite.h

	doc, err := h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "Hello")
	suite.Require().NoError(err)
	suite.Equal(1, doc.Version)
	suite.Equal(alice, doc.Author)

	_, err = h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "Again")
	suite.ErrorIs(err, ErrDocumentExists)

	_, err = h.docs.Create(h.ctx, reference.Reference{}, markup.SyntaxXWiki, "x")
	suite.ErrorIs(err, ErrReferenceRequired)

	_, err = h.docs.Create(h.ctx, reference.New("Sandbox", "Bad"), "confluence/1.0", "x")
	suite.ErrorIs(err, markup.ErrUnknownSyntax)
}

func (suite *DocumentServiceTestSuite) TestEditKeepsHistory() {
	h := suite.h
	_, err := h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "first")
	suite.Require().NoError(err)

	doc, err := h.docs.Edit(h.as(bob), sandboxHome, "second", "typo")
	suite.Require().NoError(err)
	suite.Equal(2, doc.Version)

	current, err := h.docs.Get(h.ctx, sandboxHome)
	suite.Require().NoError(err)
	suite.Equal(2, current.Version)
	suite.Equal(bob, current.Author)

	previous, err := h.docs.Revision(h.ctx, sandboxHome, 1)
	suite.Require().NoError(err)
	text, err := markup.RenderTree(previous.Content, previous.Syntax)
	suite.Require().NoError(err)
	suite.Equal("first", text)
	suite.Equal(alice, previous.Author)

	_, err = h.docs.Revision(h.ctx, sandboxHome, 3)
	suite.ErrorIs(err, ErrRevisionNotFound)
}

func (suite *DocumentServiceTestSuite) TestNotFound() {
	h := suite.h
	missing := reference.New("Sandbox", "Missing")

	_, err := h.docs.Get(h.ctx, missing)
	suite.ErrorIs(err, ErrDocumentNotFound)

	_, err = h.docs.Edit(h.ctx, missing, "x", "")
	suite.ErrorIs(err, ErrDocumentNotFound)

	suite.ErrorIs(h.docs.Delete(h.ctx, missing), ErrDocumentNotFound)

	ok, err := h.docs.Exists(h.ctx, missing)
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *DocumentServiceTestSuite) TestListenerFailureDoesNotBlockSave() {
	h := suite.h
	h.bus.SubscribeDocumentSaving(func(context.Context, *events.DocumentSavingPayload) error {
		return errors.New("listener broke")
	})

	doc, err := h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "{{task}}Ping{{/task}}")
	suite.Require().NoError(err)
	suite.Equal(1, doc.Version)
	suite.Equal(int64(1), h.countTasks(suite.T()), "earlier listeners still ran")
}

func (suite *DocumentServiceTestSuite) TestSavingListenerEditsContent() {
	h := suite.h
	h.bus.SubscribeDocumentSaving(func(_ context.Context, p *events.DocumentSavingPayload) error {
		p.Document.Content.Children = append(p.Document.Content.Children,
			markup.NewParagraph(markup.NewText("footer")))
		return nil
	})

	_, err := h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "body")
	suite.Require().NoError(err)
	suite.Equal("body\n\nfooter", h.content(suite.T(), sandboxHome.String()))
}

func (suite *DocumentServiceTestSuite) TestRemoveTaskMacroWithoutMacro() {
	h := suite.h
	_, err := h.docs.Create(h.ctx, sandboxHome, markup.SyntaxXWiki, "plain")
	suite.Require().NoError(err)

	suite.NoError(h.docs.RemoveTaskMacro(h.ctx, sandboxHome, reference.New("Sandbox", "Task_0")))
	suite.NoError(h.docs.RemoveTaskMacro(h.ctx, reference.New("Gone", "WebHome"), reference.New("Gone", "Task_0")))

	doc, err := h.docs.Get(h.ctx, sandboxHome)
	suite.Require().NoError(err)
	suite.Equal(1, doc.Version, "nothing was saved")
}

func TestDocumentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceTestSuite))
}
