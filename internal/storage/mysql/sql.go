package mysql

const insertDocumentSQL = `
INSERT INTO documents
  (collection, id, created_at, updated_at, body)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  body       = VALUES(body),
  updated_at = VALUES(updated_at)
`

const getDocumentSQL = `
SELECT id, created_at, updated_at, body
FROM documents
WHERE collection = ? AND id = ?
`

// JSON_MERGE_PATCH overwrites the top-level keys present in the patch.
const patchDocumentSQL = `
UPDATE documents
SET body = JSON_MERGE_PATCH(body, ?), updated_at = ?
WHERE collection = ? AND id = ?
`

const selectDocumentsPrefix = `
SELECT id, created_at, updated_at, body
FROM documents
WHERE collection = ?`

// Each filter compares one unquoted top-level body field.
const filterClause = ` AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?`

const orderDesc = ` ORDER BY created_at DESC, id DESC`
const orderAsc = ` ORDER BY created_at ASC, id ASC`
