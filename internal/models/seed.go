package models

// DefaultAdminEmail is the single admin account created on first start.
const DefaultAdminEmail = "admin@garden.com"

// DefaultPassword is used for the seeded admin and for approved join
// requests that were submitted without a password.
const DefaultPassword = "123456"

// InitialPosts returns the posts every garden starts with, oldest last.
func InitialPosts() []Post {
	return []Post{
		{
			ID:         "1",
			Title:      "在雨天的午后，关于慢生活的思考",
			Excerpt:    "当窗外的雨滴敲打玻璃，我开始意识到，我们追求的效率是否真的让我们更快乐？",
			Content:    "今天上海下了一场很大的雨。我坐在窗边，手里端着一杯已经冷掉的拿铁，看着楼下的路人匆忙穿梭。\n\n我们似乎总是在赶路。但此刻，在雨声中，我发现这种被迫的停歇反而让我感受到了一种久违的宁静。",
			Author:     "林间",
			Date:       MustDay("2024-06-01"),
			Category:   "生活",
			Tags:       []string{"慢生活", "思考", "上海记录", "雨天"},
			CoverImage: "https://images.unsplash.com/photo-1470770841072-f978cf4d019e?auto=format&fit=crop&q=80&w=1200",
			ReadTime:   "4 min",
			Status:     PostApproved,
		},
		{
			ID:         "2",
			Title:      "为什么我依然钟情于纸质笔记本",
			Excerpt:    "尽管 iPad 如此强大，但笔尖划过纸张的那种阻尼感是任何数字工具无法取代的。",
			Content:    "最近又买了一个 Moleskine 的笔记本。很多人问我，作为一名程序员，为什么还坚持用纸笔记录？\n\n其实理由很简单：它不联网。",
			Author:     "林间",
			Date:       MustDay("2024-05-28"),
			Category:   "感悟",
			Tags:       []string{"极简", "工具", "生产力", "写作"},
			CoverImage: "https://images.unsplash.com/photo-1517842645767-c639042777db?auto=format&fit=crop&q=80&w=1200",
			ReadTime:   "6 min",
			Status:     PostApproved,
		},
		{
			ID:         "3",
			Title:      "数字花园里的杂草：谈谈代码审美",
			Excerpt:    "好的代码就像一首诗，它不仅仅是解决问题的工具，更是作者思维的体现。",
			Content:    "最近在重构一个老项目，感触颇深。代码是可以呼吸的。",
			Author:     "林间",
			Date:       MustDay("2024-05-20"),
			Category:   "技术",
			Tags:       []string{"重构", "Clean Code", "审美", "开发者文化"},
			CoverImage: "https://images.unsplash.com/photo-1555066931-4365d14bab8c?auto=format&fit=crop&q=80&w=1200",
			ReadTime:   "10 min",
			Status:     PostApproved,
		},
	}
}

func InitialMoments() []Moment {
	return []Moment{
		{
			ID:      "m1",
			Content: "今天在路边看到一棵树，阳光穿透叶子的那一刻，感觉生命被点亮了。",
			Date:    MustDay("2024-06-05"),
			Likes:   12,
			Images:  []string{"https://images.unsplash.com/photo-1542273917363-3b1817f69a2d?auto=format&fit=crop&q=80&w=800"},
			Author:  "林间",
			Status:  MomentApproved,
		},
	}
}
