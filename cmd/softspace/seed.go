package main

import (
	"context"
	"log"
	"math/rand"
	"strconv"
	"strings"

	"github.com/jaswdr/faker"

	"github.com/Theadekanmi/softspace/pkg/common"
	"github.com/Theadekanmi/softspace/pkg/controller"
	"github.com/Theadekanmi/softspace/pkg/feed"
	"github.com/Theadekanmi/softspace/pkg/user"
)

var (
	f             = faker.New()
	onePassForAll = common.HashPass("sdfsdfsdf", common.RandStringRunes(8)) // salt must have len of 8
)

type IUserRepo interface {
	Add(*user.User) (string, error)
	GetAll() ([]*user.User, error)
}

func createAuthors(userRepo IUserRepo) {
	// User for experiments (not random)
	_, err := userRepo.Add(&user.User{
		Email:    "pike@softspace.local",
		FullName: "Pike",
		Password: onePassForAll,
	})
	if err != nil {
		log.Fatalln("seed: can't create default user:", err)
	}
	for i := 1; i <= 5; i++ {
		genUser(userRepo, i)
	}
}

func seed(userRepo IUserRepo, store *feed.Store, adapter controller.Adapter) {
	authors, err := userRepo.GetAll()
	if err != nil {
		log.Fatalln("seed: can't get all authors:", err)
	}

	if len(authors) == 0 {
		createAuthors(userRepo)
		if authors, err = userRepo.GetAll(); err != nil {
			log.Fatalln("seed: can't get all authors:", err)
		}
	}

	for i := 0; i <= 5; i++ {
		genPost(store, authors)
	}

	if err := adapter.Save(context.Background(), store.Snapshot()); err != nil {
		log.Fatalln("seed: can't save seeded feed:", err)
	}
}

func genUser(userRepo IUserRepo, id int) {
	firstName := f.Person().FirstName()
	u := user.User{
		// Id is made from i because we want them the same after server reloading
		Id:       strconv.Itoa(id),
		Email:    strings.ToLower(firstName) + "@softspace.local",
		FullName: firstName,
		Password: onePassForAll,
	}
	if _, err := userRepo.Add(&u); err != nil {
		log.Fatalln("seed: can't add user:", err)
	}
}

func genPost(store *feed.Store, authors []*user.User) {
	author := randUser(authors)
	post, err := store.CreatePost(author.Id, author.DisplayName(), genText())
	if err != nil {
		log.Fatalln("seed: can't add post:", err)
	}

	n := rand.Intn(6)
	for i := 0; i < n; i++ {
		commenter := randUser(authors)
		c, err := store.CreateComment(post.Id, commenter.Id, commenter.DisplayName(), genText())
		if err != nil {
			log.Fatalln("seed: can't add comment:", err)
		}
		if rand.Intn(2) == 0 {
			replier := randUser(authors)
			if _, err := store.CreateReply(post.Id, c.Id, replier.Id, replier.DisplayName(), genText()); err != nil {
				log.Fatalln("seed: can't add reply:", err)
			}
		}
	}
}

func genText() string {
	return f.Lorem().Paragraph(rand.Intn(3) + 1)
}

func randUser(users []*user.User) *user.User {
	idx := rand.Intn(len(users))
	return users[idx]
}
