package mysql

// Schema reference (see migrations/001_reviews.sql):
//
//	CREATE TABLE reviews (
//	  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
//	  user_id     BIGINT       NOT NULL,
//	  platform    VARCHAR(100) NOT NULL,
//	  business    VARCHAR(255) NOT NULL,
//	  content     TEXT         NOT NULL,
//	  author      VARCHAR(100) NOT NULL,
//	  rating      TINYINT      NOT NULL DEFAULT 5,
//	  review_date DATETIME     NOT NULL,
//	  verified    TINYINT(1)   NOT NULL DEFAULT 0,
//	  verified_by VARCHAR(50)  NOT NULL DEFAULT '',
//	  dedup_hash  CHAR(40)     NOT NULL,
//	  created_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	  UNIQUE KEY uq_owner_dedup (user_id, dedup_hash),
//	  KEY idx_owner_date (user_id, review_date, id)
//	) CHARACTER SET utf8mb4;

// INSERT IGNORE gives the storage-level skipDuplicates backstop: rows whose
// (user_id, dedup_hash) already exist are silently skipped and the affected
// row count reports only real inserts.
const insertReviewsPrefix = "INSERT IGNORE INTO reviews\n" +
	"  (user_id, platform, business, content, author, rating, review_date, verified, verified_by, dedup_hash)\nVALUES "

const listReviewsSQL = `
SELECT
  id,
  user_id,
  platform,
  business,
  content,
  author,
  rating,
  review_date,
  verified,
  verified_by
FROM reviews
WHERE user_id = ?
ORDER BY review_date DESC, id DESC
LIMIT ?`
